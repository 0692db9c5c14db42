package nodestore

import "errors"

// ErrSizeMismatch is returned when a mapped file's length is not a
// positive integer multiple of the expected node size S.
var ErrSizeMismatch = errors.New("nodestore: file size is not a multiple of the expected node size")
