package cpu

const (
	MEMORY_SIZE = 0x10000 // Size of the flat address space.
)

// Memory is the flat address space. It is indexed by uint16 only, so every
// address is in range.
type Memory [MEMORY_SIZE]byte

// Load copies data into memory starting at addr, wrapping at the top of the
// address space.
func (mem *Memory) Load(addr uint16, data []byte) {
	for n, value := range data {
		mem[addr+uint16(n)] = value
	}
}

// Read16 reads a little-endian word at addr.
func (mem *Memory) Read16(addr uint16) uint16 {
	return uint16(mem[addr]) | uint16(mem[addr+1])<<8
}

// Write16 writes a little-endian word at addr.
func (mem *Memory) Write16(addr uint16, value uint16) {
	mem[addr] = byte(value)
	mem[addr+1] = byte(value >> 8)
}
