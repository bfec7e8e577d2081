package state

import "encoding/binary"

var (
	treasuryConfigKeyBytes = []byte("treasury:config")
	treasuryHeightKeyBytes = []byte("treasury:height")
	treasuryBotPrefix      = []byte("treasury:bot:")
	treasuryBatchPrefix    = []byte("treasury:batch:")
)

func treasuryBotKey(addr []byte) []byte {
	buf := make([]byte, len(treasuryBotPrefix)+len(addr))
	copy(buf, treasuryBotPrefix)
	copy(buf[len(treasuryBotPrefix):], addr)
	return buf
}

func treasuryBatchKey(height uint64) []byte {
	buf := make([]byte, len(treasuryBatchPrefix)+8)
	copy(buf, treasuryBatchPrefix)
	binary.BigEndian.PutUint64(buf[len(treasuryBatchPrefix):], height)
	return buf
}
