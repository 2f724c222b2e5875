package cache

import "strconv"

// CatalogKey is the key of a board's catalog entry.
func CatalogKey(board string) string {
	return "threads:" + board
}

// ThreadKey is the key of a single thread entry.
func ThreadKey(board string, id int64) string {
	return "thread:" + board + ":" + strconv.FormatInt(id, 10)
}
