//go:build llama

package engine

// Link directives for the llama backend. libllama.so and libggml*.so are
// expected next to the binary ($ORIGIN) at run time and under ./bin at link time.

/*
#cgo LDFLAGS: -Wl,-rpath,'$ORIGIN' -L${SRCDIR}/../../bin -lllama
*/
import "C"
