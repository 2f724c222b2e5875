package media

import (
	"fmt"

	"github.com/rohmanhakim/chan-relay/pkg/hashutil"
)

type Kind string

const (
	// KindImage is the kind used for thread attachments.
	KindImage Kind = "image"
)

// DefaultMaxMediaSize caps a single download at 16 MiB.
const DefaultMaxMediaSize int64 = 16 << 20

// DerivedName is the local file name for a remote blob:
// {kind}_{board}_{id}.{ext}, without the ".{ext}" suffix when ext is empty.
func DerivedName(kind Kind, board string, id int64, ext string) string {
	if ext == "" {
		return fmt.Sprintf("%s_%s_%d", kind, board, id)
	}
	return fmt.Sprintf("%s_%s_%d.%s", kind, board, id, ext)
}

type StoreParam struct {
	dir          string
	userAgent    string
	maxMediaSize int64
	hashAlgo     hashutil.HashAlgo
}

func NewStoreParam(
	dir string,
	userAgent string,
	maxMediaSize int64,
	hashAlgo hashutil.HashAlgo,
) StoreParam {
	if maxMediaSize <= 0 {
		maxMediaSize = DefaultMaxMediaSize
	}
	if !hashAlgo.Valid() {
		hashAlgo = hashutil.HashAlgoBLAKE3
	}
	return StoreParam{
		dir:          dir,
		userAgent:    userAgent,
		maxMediaSize: maxMediaSize,
		hashAlgo:     hashAlgo,
	}
}

func (p StoreParam) Dir() string {
	return p.dir
}

func (p StoreParam) MaxMediaSize() int64 {
	return p.maxMediaSize
}

func (p StoreParam) HashAlgo() hashutil.HashAlgo {
	return p.hashAlgo
}

// StoredBlob describes a blob in the local store. ContentHash is set when
// this call downloaded the blob, even if a concurrent writer published the
// file first.
type StoredBlob struct {
	Path        string
	Downloaded  bool
	ContentHash string
}
