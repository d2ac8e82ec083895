//go:build sqlite_vec && cgo

package store

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

// cgo driver with the sqlite-vec extension. vec_distance_cosine comes from
// the extension itself.
const sqlDriverName = "sqlite3"

func init() {
	// vec.Auto() registers sqlite-vec as an auto-loadable extension for the
	// mattn/go-sqlite3 driver.
	vec.Auto()
}
