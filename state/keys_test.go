package state

import (
	"bytes"
	"errors"
	"testing"

	"zenithchain/core/types"
)

func TestContractStorageKeyFormat(t *testing.T) {
	alice := types.MustAccountID("alice")

	key := ContractStorageKey(alice, []byte("messages/1"))
	if string(key) != "contract-storage:alice:messages/1" {
		t.Fatalf("unexpected storage key: %s", string(key))
	}

	empty := ContractStorageKey(alice, nil)
	if string(empty) != "contract-storage:alice:" {
		t.Fatalf("unexpected empty-key form: %s", string(empty))
	}

	prefix := ContractStoragePrefix(alice, []byte("messages/"))
	if string(prefix) != "contract-storage:alice:messages/" {
		t.Fatalf("unexpected storage prefix: %s", string(prefix))
	}

	codeKey := ContractCodeKey(alice)
	if string(codeKey) != "contract-code:alice" {
		t.Fatalf("unexpected code key: %s", string(codeKey))
	}
}

func TestContractStorageKeyAccountIsolation(t *testing.T) {
	// Key construction must keep distinct accounts apart for any logical
	// key, including ones crafted to collide across the separator.
	cases := []struct {
		accountA, keyA string
		accountB, keyB string
	}{
		{"alice", "x", "bob", "x"},
		{"alice", "bob:x", "alice.bob", "x"},
		{"a.b", "c", "a", "b:c"},
		{"team-one", "", "team", "one:"},
	}
	for _, tc := range cases {
		keyA := ContractStorageKey(types.MustAccountID(tc.accountA), []byte(tc.keyA))
		keyB := ContractStorageKey(types.MustAccountID(tc.accountB), []byte(tc.keyB))
		if bytes.Equal(keyA, keyB) {
			t.Fatalf("accounts (%s,%s) collide on physical key %q", tc.accountA, tc.accountB, keyA)
		}
	}
}

func TestParseContractStorageKeyRoundTrip(t *testing.T) {
	account := types.MustAccountID("app.alice")
	logical := [][]byte{
		[]byte("messages/1"),
		[]byte(""),
		{0x00, 0xff, 0x10},
		[]byte("nested:colons:too"),
	}
	for _, key := range logical {
		raw := ContractStorageKey(account, key)
		got, err := ParseContractStorageKey(raw, account)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if !bytes.Equal(got, key) {
			t.Fatalf("round trip mismatch: got %q want %q", got, key)
		}
	}
}

func TestParseContractStorageKeyRejectsForeignKeys(t *testing.T) {
	alice := types.MustAccountID("alice")
	bob := types.MustAccountID("bob")

	raw := ContractStorageKey(bob, []byte("k"))
	if _, err := ParseContractStorageKey(raw, alice); !errors.Is(err, ErrInconsistentState) {
		t.Fatalf("expected ErrInconsistentState for foreign key, got %v", err)
	}

	if _, err := ParseContractStorageKey([]byte("garbage"), alice); !errors.Is(err, ErrInconsistentState) {
		t.Fatalf("expected ErrInconsistentState for garbage key, got %v", err)
	}

	// A truncated prefix must not parse either.
	if _, err := ParseContractStorageKey([]byte("contract-storage:alic"), alice); !errors.Is(err, ErrInconsistentState) {
		t.Fatalf("expected ErrInconsistentState for truncated key, got %v", err)
	}
}
