package runtime

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"lukechampine.com/blake3"

	"zenithchain/core/types"
)

// createDataID derives the count-th identifier for an invocation. Versions
// before DataIDAnchorsVersion hash only the action hash and the counter;
// later versions fold in both block anchors so identifiers cannot collide
// across forks replaying the same action. The composition for a given
// protocol version is frozen forever: past identifiers are embedded in
// state, so changing a historical layout would break replay.
func createDataID(version types.ProtocolVersion, actionHash, prevBlockHash, lastBlockHash common.Hash, count uint64) common.Hash {
	var counter [8]byte
	binary.LittleEndian.PutUint64(counter[:], count)

	buf := make([]byte, 0, 3*common.HashLength+8)
	buf = append(buf, actionHash.Bytes()...)
	if version >= types.DataIDAnchorsVersion {
		buf = append(buf, prevBlockHash.Bytes()...)
		buf = append(buf, lastBlockHash.Bytes()...)
	}
	buf = append(buf, counter[:]...)

	return common.Hash(blake3.Sum256(buf))
}
