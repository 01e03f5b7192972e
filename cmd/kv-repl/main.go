// kv-repl is an interactive CLI over a region-backed hashmap.Map or
// btree.BTree.
//
// Usage:
//
//	kv-repl new --structure=hashmap|btree [--slots=N] [--order=N] <data-file>
//	kv-repl open <data-file>
//
// Commands (in REPL, once a structure is open):
//
//	put <key> <value>       Insert or update an entry
//	get <key>                Retrieve an entry by key
//	del <key>                Delete an entry
//	len                      Count live entries
//	info                     Show structure info
//	range <lo> <hi>          List entries with lo <= key <= hi (btree only)
//	popfront                 Remove and return the smallest key (btree only)
//	popback                  Remove and return the largest key (btree only)
//	help                     Show this help
//	exit / quit / q          Exit
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/kvstore/pkg/btree"
	"github.com/calvinalkan/kvstore/pkg/hashmap"
	"github.com/calvinalkan/kvstore/pkg/region"
)

const (
	defaultSlots = 1024
	defaultOrder = 8
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 1 {
		printUsage()
		return errors.New("missing command")
	}

	switch args[0] {
	case "new":
		return runNew(args[1:])
	case "open":
		return runOpen(args[1:])
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  kv-repl new --structure=hashmap|btree [--slots=N] [--order=N] <data-file>")
	fmt.Fprintln(os.Stderr, "  kv-repl open <data-file>")
}

func runNew(args []string) error {
	fs := flag.NewFlagSet("new", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	structure := fs.String("structure", "hashmap", "backing structure: hashmap|btree")
	slots := fs.Int("slots", defaultSlots, "region size in slots (btree only)")
	order := fs.Int("order", defaultOrder, "B+ tree order (btree only)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		printUsage()
		return errors.New("missing data-file path")
	}

	path := fs.Arg(0)

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("data file already exists: %s (use 'kv-repl open %s')", path, path)
	}

	if *structure != "hashmap" && *structure != "btree" {
		return fmt.Errorf("invalid --structure %q: must be hashmap or btree", *structure)
	}

	session, err := openHandle(*structure, path, *slots, *order, true)
	if err != nil {
		return err
	}
	defer session.Close()

	if err := saveSessionConfig(path, sessionConfig{Structure: *structure, Slots: *slots, Order: *order}); err != nil {
		return fmt.Errorf("writing session config: %w", err)
	}

	fmt.Printf("Created %s-backed store at %s", *structure, path)
	if *structure == "btree" {
		fmt.Printf(" (slots=%d, order=%d)", *slots, *order)
	}
	fmt.Println()

	repl := &REPL{session: session, structure: *structure}

	return repl.Run()
}

func runOpen(args []string) error {
	fs := flag.NewFlagSet("open", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		printUsage()
		return errors.New("missing data-file path")
	}

	path := fs.Arg(0)

	cfg, err := loadSessionConfig(path)
	if err != nil {
		return fmt.Errorf("reading config for %s (use 'kv-repl new' to create it): %w", path, err)
	}

	session, err := openHandle(cfg.Structure, path, cfg.Slots, cfg.Order, false)
	if err != nil {
		return err
	}
	defer session.Close()

	fmt.Printf("Opened %s-backed store at %s\n", cfg.Structure, path)

	if cfg.Structure == "hashmap" {
		fmt.Println("Note: a hashmap's entries are not reloaded from disk; only its reserved")
		fmt.Println("region is reused. Table contents persistence is the out-of-scope")
		fmt.Println("page-oriented database layer's concern; use btree for reload-safe state.")
	}

	repl := &REPL{session: session, structure: cfg.Structure}

	return repl.Run()
}

// session is the uniform handle the REPL drives, regardless of which
// structure backs it.
type session struct {
	hmap  *hashmap.Map[string, string]
	tree  *btree.BTree[string, string]
	Close func() error
}

func openHandle(structure, path string, slots, order int, fresh bool) (*session, error) {
	switch structure {
	case "hashmap":
		m, err := hashmap.TryNewFile[string, string](path, hashmap.StringHasher)
		if err != nil {
			return nil, fmt.Errorf("opening hashmap file: %w", err)
		}

		return &session{hmap: m, Close: m.Close}, nil

	case "btree":
		buf, err := region.OpenFile[btree.Block[string, string]](path, slots)
		if err != nil {
			return nil, fmt.Errorf("opening btree file: %w", err)
		}

		var tree *btree.BTree[string, string]
		if fresh {
			tree, err = btree.CreateFrom[string, string](buf, order)
		} else {
			tree, err = btree.LoadFrom[string, string](buf)
		}

		if err != nil {
			_ = buf.Close()
			return nil, fmt.Errorf("initializing btree: %w", err)
		}

		return &session{tree: tree, Close: tree.Close}, nil

	default:
		return nil, fmt.Errorf("unknown structure: %s", structure)
	}
}

// REPL is the interactive command loop, grounded on cmd/sloty's liner-based
// REPL but driving a hashmap.Map or btree.BTree instead of a slotcache.Cache.
type REPL struct {
	session   *session
	structure string
	liner     *liner.State
}

func (r *REPL) Run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	fmt.Printf("kv-repl - %s store\n", r.structure)
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := r.liner.Prompt("kv-repl> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Println("\nBye!")
				return nil
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			fmt.Println("Bye!")
			return nil

		case "help", "?":
			r.printHelp()

		case "put":
			r.cmdPut(args)

		case "get":
			r.cmdGet(args)

		case "del", "delete":
			r.cmdDelete(args)

		case "len", "count":
			r.cmdLen()

		case "info":
			r.cmdInfo()

		case "range":
			r.cmdRange(args)

		case "popfront":
			r.cmdPopFront()

		case "popback":
			r.cmdPopBack()

		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (r *REPL) completer(line string) []string {
	commands := []string{
		"put", "get", "del", "delete", "len", "count", "info",
		"range", "popfront", "popback", "help", "exit", "quit", "q",
	}

	lower := strings.ToLower(line)

	var completions []string

	for _, cmd := range commands {
		if strings.HasPrefix(cmd, lower) {
			completions = append(completions, cmd)
		}
	}

	return completions
}

func (r *REPL) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  put <key> <value>   Insert or update an entry")
	fmt.Println("  get <key>           Retrieve an entry by key")
	fmt.Println("  del <key>           Delete an entry")
	fmt.Println("  len                 Count live entries")
	fmt.Println("  info                Show structure info")

	if r.structure == "btree" {
		fmt.Println("  range <lo> <hi>     List entries with lo <= key <= hi")
		fmt.Println("  popfront            Remove and return the smallest key")
		fmt.Println("  popback             Remove and return the largest key")
	}

	fmt.Println("  help                Show this help")
	fmt.Println("  exit / quit / q     Exit")
}

func (r *REPL) cmdPut(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: put <key> <value>")
		return
	}

	key, value := args[0], args[1]

	switch r.structure {
	case "hashmap":
		_, replaced, err := r.session.hmap.TryInsert(key, value)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}

		fmt.Printf("OK: put %q (replaced=%v)\n", key, replaced)

	case "btree":
		ok := r.session.tree.Insert(key, value)
		if !ok {
			fmt.Println("Error: region is full")
			return
		}

		fmt.Printf("OK: put %q\n", key)
	}
}

func (r *REPL) cmdGet(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: get <key>")
		return
	}

	key := args[0]

	var (
		value string
		found bool
	)

	switch r.structure {
	case "hashmap":
		value, found = r.session.hmap.Get(key)
	case "btree":
		value, found = r.session.tree.Find(key)
	}

	if !found {
		fmt.Println("(not found)")
		return
	}

	fmt.Printf("%s = %q\n", key, value)
}

func (r *REPL) cmdDelete(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: del <key>")
		return
	}

	key := args[0]

	var existed bool

	switch r.structure {
	case "hashmap":
		existed = r.session.hmap.Remove(key)
	case "btree":
		existed = r.session.tree.Delete(key)
	}

	if existed {
		fmt.Printf("OK: deleted %q\n", key)
	} else {
		fmt.Printf("OK: %q did not exist\n", key)
	}
}

func (r *REPL) cmdLen() {
	var n int

	switch r.structure {
	case "hashmap":
		n = r.session.hmap.Len()
	case "btree":
		n = r.session.tree.Len()
	}

	fmt.Printf("Live entries: %d\n", n)
}

func (r *REPL) cmdInfo() {
	fmt.Printf("Structure: %s\n", r.structure)

	switch r.structure {
	case "hashmap":
		fmt.Printf("Average probe count: %.2f\n", r.session.hmap.AverageProbeCount())
	case "btree":
		fmt.Printf("Empty: %v\n", r.session.tree.IsEmpty())
		fmt.Printf("Full:  %v\n", r.session.tree.IsFull())
	}
}

func (r *REPL) cmdRange(args []string) {
	if r.structure != "btree" {
		fmt.Println("range is only available for btree stores")
		return
	}

	if len(args) < 2 {
		fmt.Println("Usage: range <lo> <hi>")
		return
	}

	pairs := r.session.tree.RangeFind(args[0], args[1])
	if len(pairs) == 0 {
		fmt.Println("(empty)")
		return
	}

	for i, p := range pairs {
		fmt.Printf("%3d. %s = %q\n", i+1, p.Key, p.Value)
	}
}

func (r *REPL) cmdPopFront() {
	if r.structure != "btree" {
		fmt.Println("popfront is only available for btree stores")
		return
	}

	p, ok := r.session.tree.PopFront()
	if !ok {
		fmt.Println("(empty)")
		return
	}

	fmt.Printf("%s = %q\n", p.Key, p.Value)
}

func (r *REPL) cmdPopBack() {
	if r.structure != "btree" {
		fmt.Println("popback is only available for btree stores")
		return
	}

	p, ok := r.session.tree.PopBack()
	if !ok {
		fmt.Println("(empty)")
		return
	}

	fmt.Printf("%s = %q\n", p.Key, p.Value)
}
