// Package pagelayout defines the boundary contract between this module's
// in-place B+ tree and a page-oriented database layer that is explicitly
// out of scope here (see SPEC_FULL.md §5.E). It exports only the page
// tagging and sizing a caller needs to embed a pkg/btree.BTree inside one
// page of a larger store: no directory tree, page trunk, row free list, or
// metadata page manager lives in this package.
package pagelayout

// PageType tags the role of a fixed-size page in the (out-of-scope)
// surrounding store. Mirrors the offset-tagged-header convention
// pkg/slotcache/format.go uses for its SLC1 file header, generalized from
// "one 256-byte header" to "one 4 KiB page with a type tag".
type PageType uint32

const (
	PageUnallocated PageType = iota
	PageMetadata
	PageTrunk
	PageDirectory
	PageIndexRoot
	PageIndexLeaf
	PageRowData
)

func (t PageType) String() string {
	switch t {
	case PageUnallocated:
		return "unallocated"
	case PageMetadata:
		return "metadata"
	case PageTrunk:
		return "trunk"
	case PageDirectory:
		return "directory"
	case PageIndexRoot:
		return "index_root"
	case PageIndexLeaf:
		return "index_leaf"
	case PageRowData:
		return "row_data"
	default:
		return "unknown"
	}
}

// PageSize is the fixed page size of the surrounding (out-of-scope) store.
const PageSize = 4096

// BPlusTreePage is one page's worth of backing extent for an embedded
// pkg/btree.BTree: BTreeBytes is the extent reserved for the tree, and Cont
// holds a continuation page number. This package provides no
// region.Capability over BTreeBytes, and btree.CreateFrom/LoadFrom accept
// only a region.Capability[btree.Block[K,V]], not a byte slice; nothing in
// this module builds a tree inside BTreeBytes or follows Cont.
type BPlusTreePage struct {
	BTreeBytes [PageSize - 4]byte
	Cont       uint32
}
