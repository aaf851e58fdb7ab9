// Package wasmtest provides hand-assembled guest modules for tests.
package wasmtest

// hypot is a hand-assembled guest implementing the export ABI:
//
//	(module
//	  (memory (export "memory") 1)
//	  (func (export "size") (param f64 f64) (result f64)
//	    (f64.sqrt (f64.add (f64.mul (local.get 0) (local.get 0))
//	                       (f64.mul (local.get 1) (local.get 1)))))
//	  (func (export "get_version") (result i32) (i32.const 16))
//	  (func (export "release") (param i32))
//	  (data (i32.const 16) "1.2.6\00"))
var hypot = []byte{
	0x00, 0x61, 0x73, 0x6d, // Magic number: \0asm
	0x01, 0x00, 0x00, 0x00, // Version: 1

	// Type section: (f64 f64)->f64, ()->i32, (i32)->()
	0x01, 0x0f, 0x03,
	0x60, 0x02, 0x7c, 0x7c, 0x01, 0x7c,
	0x60, 0x00, 0x01, 0x7f,
	0x60, 0x01, 0x7f, 0x00,

	// Function section
	0x03, 0x04, 0x03, 0x00, 0x01, 0x02,

	// Memory section: 1 page
	0x05, 0x03, 0x01, 0x00, 0x01,

	// Export section
	0x07, 0x29, 0x04,
	0x04, 's', 'i', 'z', 'e', 0x00, 0x00,
	0x0b, 'g', 'e', 't', '_', 'v', 'e', 'r', 's', 'i', 'o', 'n', 0x00, 0x01,
	0x07, 'r', 'e', 'l', 'e', 'a', 's', 'e', 0x00, 0x02,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,

	// Code section
	0x0a, 0x18, 0x03,
	0x0e, 0x00, 0x20, 0x00, 0x20, 0x00, 0xa2, 0x20, 0x01, 0x20, 0x01, 0xa2, 0xa0, 0x9f, 0x0b,
	0x04, 0x00, 0x41, 0x10, 0x0b,
	0x02, 0x00, 0x0b,

	// Data section: "1.2.6\0" at 16
	0x0b, 0x0c, 0x01, 0x00, 0x41, 0x10, 0x0b,
	0x06, '1', '.', '2', '.', '6', 0x00,
}

// nullVersion matches hypot except get_version returns 0 and there is
// no data segment.
var nullVersion = []byte{
	0x00, 0x61, 0x73, 0x6d,
	0x01, 0x00, 0x00, 0x00,

	0x01, 0x0f, 0x03,
	0x60, 0x02, 0x7c, 0x7c, 0x01, 0x7c,
	0x60, 0x00, 0x01, 0x7f,
	0x60, 0x01, 0x7f, 0x00,

	0x03, 0x04, 0x03, 0x00, 0x01, 0x02,

	0x05, 0x03, 0x01, 0x00, 0x01,

	0x07, 0x29, 0x04,
	0x04, 's', 'i', 'z', 'e', 0x00, 0x00,
	0x0b, 'g', 'e', 't', '_', 'v', 'e', 'r', 's', 'i', 'o', 'n', 0x00, 0x01,
	0x07, 'r', 'e', 'l', 'e', 'a', 's', 'e', 0x00, 0x02,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,

	0x0a, 0x18, 0x03,
	0x0e, 0x00, 0x20, 0x00, 0x20, 0x00, 0xa2, 0x20, 0x01, 0x20, 0x01, 0xa2, 0xa0, 0x9f, 0x0b,
	0x04, 0x00, 0x41, 0x00, 0x0b,
	0x02, 0x00, 0x0b,
}

// wrongSignature exports size as ()->i32.
var wrongSignature = []byte{
	0x00, 0x61, 0x73, 0x6d,
	0x01, 0x00, 0x00, 0x00,

	0x01, 0x0f, 0x03,
	0x60, 0x02, 0x7c, 0x7c, 0x01, 0x7c,
	0x60, 0x00, 0x01, 0x7f,
	0x60, 0x01, 0x7f, 0x00,

	0x03, 0x04, 0x03, 0x01, 0x01, 0x02,

	0x05, 0x03, 0x01, 0x00, 0x01,

	0x07, 0x29, 0x04,
	0x04, 's', 'i', 'z', 'e', 0x00, 0x00,
	0x0b, 'g', 'e', 't', '_', 'v', 'e', 'r', 's', 'i', 'o', 'n', 0x00, 0x01,
	0x07, 'r', 'e', 'l', 'e', 'a', 's', 'e', 0x00, 0x02,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,

	0x0a, 0x0e, 0x03,
	0x04, 0x00, 0x41, 0x10, 0x0b,
	0x04, 0x00, 0x41, 0x10, 0x0b,
	0x02, 0x00, 0x0b,
}

// empty is a valid module with no exports.
var empty = []byte{
	0x00, 0x61, 0x73, 0x6d, // Magic number: \0asm
	0x01, 0x00, 0x00, 0x00, // Version: 1
}

// Hypot returns a guest exporting size, get_version ("1.2.6") and release.
func Hypot() []byte { return clone(hypot) }

// NullVersion returns a guest whose get_version reports no version.
func NullVersion() []byte { return clone(nullVersion) }

// WrongSignature returns a guest whose size export has the wrong signature.
func WrongSignature() []byte { return clone(wrongSignature) }

// Empty returns a valid module with no exports.
func Empty() []byte { return clone(empty) }

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
