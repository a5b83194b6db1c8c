package epoch

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"zenithchain/core/types"
)

func testSnapshot() Snapshot {
	return Snapshot{
		Epoch:     7,
		BlockHash: common.HexToHash("0x01"),
		Entries: []Entry{
			{Account: types.MustAccountID("alice"), Stake: big.NewInt(1000)},
			{Account: types.MustAccountID("bob"), Stake: big.NewInt(250)},
		},
	}
}

func TestSnapshotProviderValidatorStake(t *testing.T) {
	provider := NewSnapshotProvider()
	if err := provider.Register(testSnapshot()); err != nil {
		t.Fatalf("register: %v", err)
	}

	stake, ok, err := provider.ValidatorStake(7, common.HexToHash("0x01"), types.MustAccountID("alice"))
	if err != nil {
		t.Fatalf("validator stake: %v", err)
	}
	if !ok {
		t.Fatalf("expected alice to be a validator")
	}
	if stake.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("unexpected stake: %s", stake)
	}
}

func TestSnapshotProviderNonValidatorIsAbsentNotError(t *testing.T) {
	provider := NewSnapshotProvider()
	if err := provider.Register(testSnapshot()); err != nil {
		t.Fatalf("register: %v", err)
	}

	stake, ok, err := provider.ValidatorStake(7, common.HexToHash("0x01"), types.MustAccountID("carol"))
	if err != nil {
		t.Fatalf("expected absence, got error: %v", err)
	}
	if ok || stake != nil {
		t.Fatalf("expected carol to be absent, got %v %v", stake, ok)
	}
}

func TestSnapshotProviderUnknownEpoch(t *testing.T) {
	provider := NewSnapshotProvider()
	if err := provider.Register(testSnapshot()); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, _, err := provider.ValidatorStake(8, common.HexToHash("0x01"), types.MustAccountID("alice"))
	if !errors.Is(err, ErrUnknownEpoch) {
		t.Fatalf("expected ErrUnknownEpoch for wrong epoch, got %v", err)
	}

	// Same epoch anchored to a different block is a different snapshot.
	_, err = provider.ValidatorTotalStake(7, common.HexToHash("0x02"))
	if !errors.Is(err, ErrUnknownEpoch) {
		t.Fatalf("expected ErrUnknownEpoch for wrong anchor, got %v", err)
	}
}

func TestSnapshotProviderTotalStake(t *testing.T) {
	provider := NewSnapshotProvider()
	if err := provider.Register(testSnapshot()); err != nil {
		t.Fatalf("register: %v", err)
	}

	total, err := provider.ValidatorTotalStake(7, common.HexToHash("0x01"))
	if err != nil {
		t.Fatalf("total stake: %v", err)
	}
	if total.Cmp(big.NewInt(1250)) != 0 {
		t.Fatalf("unexpected total: %s", total)
	}
}

func TestSnapshotProviderCopiesResults(t *testing.T) {
	provider := NewSnapshotProvider()
	if err := provider.Register(testSnapshot()); err != nil {
		t.Fatalf("register: %v", err)
	}

	stake, _, err := provider.ValidatorStake(7, common.HexToHash("0x01"), types.MustAccountID("alice"))
	if err != nil {
		t.Fatalf("validator stake: %v", err)
	}
	stake.SetInt64(1)

	again, _, err := provider.ValidatorStake(7, common.HexToHash("0x01"), types.MustAccountID("alice"))
	if err != nil {
		t.Fatalf("validator stake: %v", err)
	}
	if again.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("registered stake mutated through returned value: %s", again)
	}
}

func TestSnapshotValidateRejects(t *testing.T) {
	cases := []struct {
		name     string
		snapshot Snapshot
	}{
		{
			name: "duplicate validator",
			snapshot: Snapshot{
				Epoch: 1,
				Entries: []Entry{
					{Account: types.MustAccountID("alice"), Stake: big.NewInt(1)},
					{Account: types.MustAccountID("alice"), Stake: big.NewInt(2)},
				},
			},
		},
		{
			name: "nil stake",
			snapshot: Snapshot{
				Epoch:   1,
				Entries: []Entry{{Account: types.MustAccountID("alice")}},
			},
		},
		{
			name: "negative stake",
			snapshot: Snapshot{
				Epoch:   1,
				Entries: []Entry{{Account: types.MustAccountID("alice"), Stake: big.NewInt(-5)}},
			},
		},
		{
			name: "invalid account",
			snapshot: Snapshot{
				Epoch:   1,
				Entries: []Entry{{Account: types.AccountID("Not:Valid"), Stake: big.NewInt(1)}},
			},
		},
		{
			name: "total mismatch",
			snapshot: Snapshot{
				Epoch:      1,
				TotalStake: big.NewInt(999),
				Entries:    []Entry{{Account: types.MustAccountID("alice"), Stake: big.NewInt(1)}},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.snapshot.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
			provider := NewSnapshotProvider()
			if err := provider.Register(tc.snapshot); err == nil {
				t.Fatalf("expected registration to fail")
			}
		})
	}
}

func TestSnapshotSummaryDeterministicOrder(t *testing.T) {
	snapshot := Snapshot{
		Epoch:     3,
		BlockHash: common.HexToHash("0x03"),
		Entries: []Entry{
			{Account: types.MustAccountID("carol"), Stake: big.NewInt(50)},
			{Account: types.MustAccountID("alice"), Stake: big.NewInt(100)},
			{Account: types.MustAccountID("bob"), Stake: big.NewInt(100)},
		},
	}
	summary := snapshot.Summary()
	if summary.ValidatorCount != 3 {
		t.Fatalf("unexpected validator count: %d", summary.ValidatorCount)
	}
	if summary.TotalStake.Cmp(big.NewInt(250)) != 0 {
		t.Fatalf("unexpected total stake: %s", summary.TotalStake)
	}
	want := []types.AccountID{"alice", "bob", "carol"}
	for i, account := range want {
		if summary.Validators[i] != account {
			t.Fatalf("unexpected order at %d: got %s want %s", i, summary.Validators[i], account)
		}
	}
}
