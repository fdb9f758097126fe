package storemap

// Checksum is a CRC-8 (polynomial 0x07, initial value 0) over a primary
// region buffer, skipping the checksum byte itself. The same function
// validates the backup mirror, whose layout is identical.
func Checksum(region []byte) byte {
	skip := offset(ChecksumAddr)
	var crc byte
	for i, b := range region {
		if i == skip {
			continue
		}
		crc ^= b
		for bit := 0; bit < 8; bit++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x07
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
