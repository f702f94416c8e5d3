// Package compress provides the compression codecs used by SPEAD capture
// files.
//
// A capture file's body, the concatenated length-prefixed packet records,
// is compressed as a single block by one of the codecs here. SPEAD payloads
// are raw instrument samples, so the codecs span the usual trade-off:
//
//   - None: no compression (fastest, largest)
//   - Zstd: best ratio, moderate speed
//   - S2: balanced ratio and speed
//   - LZ4: fastest decompression, moderate ratio
//
// The package defines three interfaces:
//
//	type Compressor interface {
//	    Compress(data []byte) ([]byte, error)
//	}
//
//	type Decompressor interface {
//	    Decompress(data []byte) ([]byte, error)
//	}
//
//	type Codec interface {
//	    Compressor
//	    Decompressor
//	}
//
// CodecFor maps a Compression tag, the byte stored in the capture file
// header, to its Codec.
package compress
