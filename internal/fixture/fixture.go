// Package fixture holds hand-encoded WebAssembly modules for tests and the
// demo workload.
package fixture

// Counter is a core module importing env.tick () -> () and exporting:
//
//	add(a, b i32) i32        a + b
//	call_host(x i32) i32     calls env.tick, returns x
//	sum(n i32) i32           1 + 2 + ... + n, computed in a loop
var Counter = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,

	// type section: () -> (), (i32, i32) -> i32, (i32) -> i32
	0x01, 0x0f, 0x03,
	0x60, 0x00, 0x00,
	0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f,
	0x60, 0x01, 0x7f, 0x01, 0x7f,

	// import section: env.tick type 0
	0x02, 0x0c, 0x01,
	0x03, 'e', 'n', 'v',
	0x04, 't', 'i', 'c', 'k',
	0x00, 0x00,

	// function section: add=1, call_host=2, sum=2
	0x03, 0x04, 0x03, 0x01, 0x02, 0x02,

	// export section
	0x07, 0x19, 0x03,
	0x03, 'a', 'd', 'd', 0x00, 0x01,
	0x09, 'c', 'a', 'l', 'l', '_', 'h', 'o', 's', 't', 0x00, 0x02,
	0x03, 's', 'u', 'm', 0x00, 0x03,

	// code section
	0x0a, 0x32, 0x03,
	// add: local.get 0, local.get 1, i32.add
	0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b,
	// call_host: call 0, local.get 0
	0x06, 0x00, 0x10, 0x00, 0x20, 0x00, 0x0b,
	// sum: one i32 local acc; loop while n != 0 { acc += n; n-- }
	0x21, 0x01, 0x01, 0x7f,
	0x02, 0x40,
	0x03, 0x40,
	0x20, 0x00, 0x45, 0x0d, 0x01,
	0x20, 0x01, 0x20, 0x00, 0x6a, 0x21, 0x01,
	0x20, 0x00, 0x41, 0x01, 0x6b, 0x21, 0x00,
	0x0c, 0x00,
	0x0b,
	0x0b,
	0x20, 0x01,
	0x0b,
}

// Export names of Counter.
const (
	ExportAdd      = "add"
	ExportCallHost = "call_host"
	ExportSum      = "sum"

	ImportModule = "env"
	ImportTick   = "tick"
)

// Invalid is not a WebAssembly binary.
var Invalid = []byte{0x00, 0x61, 0x73, 0x6d, 0x02}
