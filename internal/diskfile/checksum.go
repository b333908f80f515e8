package diskfile

import "github.com/spaolacci/murmur3"

// Checksum returns a 32-bit murmur3 checksum of data. Relation pages
// reserve their trailing 4 bytes for the checksum of everything before
// it, computed with this function, so that a bulk load can detect a
// truncated or torn page before handing its tuples to the index
// builder. The index file's own page layout (meta-page, leaf, internal)
// is bit-exact per the spec and carries no checksum trailer.
func Checksum(data []byte) uint32 {
	return murmur3.Sum32(data)
}
