//go:build !sqlite_vec

package store

import (
	"database/sql/driver"
	"fmt"
	"math"

	"modernc.org/sqlite"
)

// Pure-Go driver. Cosine distance runs as a registered scalar function over
// raw embedding blobs, so no cgo or loadable extension is needed.
const sqlDriverName = "sqlite"

func init() {
	// Same name and semantics as the sqlite-vec extension function, so the
	// ranking SQL is identical under both builds.
	_ = sqlite.RegisterDeterministicScalarFunction("vec_distance_cosine", 2, vecDistanceCosine)
}

func vecDistanceCosine(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("vec_distance_cosine expects 2 arguments")
	}
	a, err := coerceBlob(args[0])
	if err != nil {
		return nil, err
	}
	b, err := coerceBlob(args[1])
	if err != nil {
		return nil, err
	}
	va, err := DecodeVector(a)
	if err != nil {
		return nil, err
	}
	vb, err := DecodeVector(b)
	if err != nil {
		return nil, err
	}
	if len(va) == 0 || len(vb) == 0 {
		return float64(1), nil
	}
	if len(va) != len(vb) {
		return nil, fmt.Errorf("vec_distance_cosine: dimension mismatch %d vs %d", len(va), len(vb))
	}
	var dot, na, nb float64
	for i := range va {
		af := float64(va[i])
		bf := float64(vb[i])
		dot += af * bf
		na += af * af
		nb += bf * bf
	}
	if na == 0 || nb == 0 {
		return float64(1), nil
	}
	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return float64(1 - cos), nil
}

func coerceBlob(v driver.Value) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	default:
		return nil, fmt.Errorf("vec_distance_cosine: unsupported argument type %T", v)
	}
}
