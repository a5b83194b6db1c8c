package runtime

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"zenithchain/core/types"
)

var (
	idAction = ethcrypto.Keccak256Hash([]byte("id-action"))
	idPrev   = ethcrypto.Keccak256Hash([]byte("id-prev"))
	idLast   = ethcrypto.Keccak256Hash([]byte("id-last"))
)

func TestCreateDataIDDeterministic(t *testing.T) {
	a := createDataID(types.CurrentProtocolVersion, idAction, idPrev, idLast, 3)
	b := createDataID(types.CurrentProtocolVersion, idAction, idPrev, idLast, 3)
	if a != b {
		t.Fatalf("identical inputs produced %s and %s", a, b)
	}
}

func TestCreateDataIDInputSensitivity(t *testing.T) {
	base := createDataID(types.CurrentProtocolVersion, idAction, idPrev, idLast, 0)

	variants := map[string]common.Hash{
		"counter":     createDataID(types.CurrentProtocolVersion, idAction, idPrev, idLast, 1),
		"action hash": createDataID(types.CurrentProtocolVersion, idLast, idPrev, idLast, 0),
		"prev block":  createDataID(types.CurrentProtocolVersion, idAction, idLast, idLast, 0),
		"last block":  createDataID(types.CurrentProtocolVersion, idAction, idPrev, idPrev, 0),
	}
	for input, id := range variants {
		if id == base {
			t.Errorf("changing the %s did not change the identifier", input)
		}
	}
}

func TestCreateDataIDLegacyIgnoresAnchors(t *testing.T) {
	legacy := types.DataIDAnchorsVersion - 1

	a := createDataID(legacy, idAction, idPrev, idLast, 5)
	b := createDataID(legacy, idAction, idLast, idPrev, 5)
	if a != b {
		t.Fatalf("pre-anchor derivation consumed block anchors: %s vs %s", a, b)
	}
	if c := createDataID(legacy, idPrev, idPrev, idLast, 5); c == a {
		t.Fatal("pre-anchor derivation ignored the action hash")
	}
}

func TestCreateDataIDAnchorBoundary(t *testing.T) {
	before := createDataID(types.DataIDAnchorsVersion-1, idAction, idPrev, idLast, 0)
	at := createDataID(types.DataIDAnchorsVersion, idAction, idPrev, idLast, 0)
	after := createDataID(types.DataIDAnchorsVersion+1, idAction, idPrev, idLast, 0)

	if before == at {
		t.Fatal("crossing the anchor version did not change the derivation")
	}
	if at != after {
		t.Fatalf("anchored derivation is not stable across versions: %s vs %s", at, after)
	}
}

func TestCreateDataIDCounterSequenceDistinct(t *testing.T) {
	seen := make(map[common.Hash]uint64)
	for count := uint64(0); count < 64; count++ {
		id := createDataID(types.CurrentProtocolVersion, idAction, idPrev, idLast, count)
		if prior, dup := seen[id]; dup {
			t.Fatalf("counter values %d and %d collided on %s", prior, count, id)
		}
		seen[id] = count
	}
}
