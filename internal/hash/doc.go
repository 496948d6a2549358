// Package hash provides the CRC32-Castagnoli checksums used by the section
// and checkpoint formats and by the S3 upload path.
//
// For one-shot checksums:
//
//	checksum := hash.CRC32C(data)
//
// For streaming checksums:
//
//	h := hash.NewCRC32C()
//	h.Write(header)
//	h.Write(body)
//	checksum := h.Sum32()
package hash
