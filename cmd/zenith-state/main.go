package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"

	"zenithchain/config"
	"zenithchain/core/epoch"
	"zenithchain/core/types"
	"zenithchain/observability"
	"zenithchain/observability/logging"
	"zenithchain/runtime"
	"zenithchain/state"
	"zenithchain/storage"
	"zenithchain/storage/trie"
)

func main() {
	configFile := flag.String("config", "./zenith.toml", "Path to the configuration file")
	accountFlag := flag.String("account", "", "Account the invocation is scoped to (required)")
	epochFlag := flag.Uint64("epoch", 0, "Epoch the invocation is pinned to")
	actionFlag := flag.String("action", "", "Action hash seeding data-id derivation (32-byte hex)")
	prevBlockFlag := flag.String("prev-block", "", "Previous block anchor (32-byte hex)")
	lastBlockFlag := flag.String("last-block", "", "Last block anchor (32-byte hex)")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}
	if args[0] == "help" {
		printUsage()
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logEnv := strings.TrimSpace(os.Getenv("ZENITH_ENV"))
	if logEnv == "" {
		logEnv = cfg.LogEnv
	}
	var logOpts []logging.Option
	if strings.TrimSpace(cfg.LogRotatePath) != "" {
		logOpts = append(logOpts, logging.WithRotation(cfg.LogRotatePath, cfg.LogRotateMaxSizeMB, cfg.LogRotateMaxBackups))
	}
	logger := logging.Setup("zenith-state", logEnv, logOpts...)

	account, err := types.ParseAccountID(strings.TrimSpace(*accountFlag))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: --account is required: %v\n", err)
		printUsage()
		os.Exit(1)
	}

	action, err := parseHashFlag("action", *actionFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	prevBlock, err := parseHashFlag("prev-block", *prevBlockFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	lastBlock, err := parseHashFlag("last-block", *lastBlockFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	tool, err := open(cfg, account, *epochFlag, action, prevBlock, lastBlock, logger)
	if err != nil {
		logger.Error("Failed to open state", slog.Any("error", err))
		os.Exit(1)
	}
	defer tool.close()

	switch args[0] {
	case "get":
		if len(args) < 2 {
			fmt.Println("Error: Please provide a key.")
			printUsage()
			os.Exit(1)
		}
		tool.get(args[1])
	case "has":
		if len(args) < 2 {
			fmt.Println("Error: Please provide a key.")
			printUsage()
			os.Exit(1)
		}
		tool.has(args[1])
	case "list":
		prefix := ""
		if len(args) > 1 {
			prefix = args[1]
		}
		tool.list(prefix)
	case "code":
		if len(args) < 2 {
			fmt.Println("Error: Please provide a code hash.")
			printUsage()
			os.Exit(1)
		}
		tool.code(args[1])
	case "stake":
		if len(args) < 2 {
			fmt.Println("Error: Please provide a validator account.")
			printUsage()
			os.Exit(1)
		}
		tool.stake(args[1])
	case "total-stake":
		tool.totalStake()
	case "derive-ids":
		if len(args) < 2 {
			fmt.Println("Error: Please provide a count.")
			printUsage()
			os.Exit(1)
		}
		count, err := strconv.Atoi(args[1])
		if err != nil || count < 1 {
			fmt.Println("Error: Invalid count.")
			os.Exit(1)
		}
		tool.deriveIDs(count)
	default:
		fmt.Printf("Unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

// stateTool bundles one opened invocation context: the trie-backed view, the
// adapter above it, and the handles that need closing on the way out.
type stateTool struct {
	env     *runtime.Env
	view    *state.View
	account types.AccountID
	epochID uint64
	db      *storage.LevelDB
	cache   *runtime.BoltCodeCache
	logger  *slog.Logger
}

func open(cfg *config.Config, account types.AccountID, epochID uint64, action, prevBlock, lastBlock common.Hash, logger *slog.Logger) (*stateTool, error) {
	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	root, err := cfg.Root()
	if err != nil {
		db.Close()
		return nil, err
	}
	var rootBytes []byte
	if root != (common.Hash{}) {
		rootBytes = root.Bytes()
	}
	tr, err := trie.NewTrie(db, rootBytes)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open trie at root %s: %w", root, err)
	}
	view := state.NewView(tr)

	provider := epoch.NewSnapshotProvider()
	if path := strings.TrimSpace(cfg.EpochSnapshots); path != "" {
		snapshots, err := epoch.LoadSnapshotFile(path)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("load epoch snapshots: %w", err)
		}
		for _, snapshot := range snapshots {
			if err := provider.Register(snapshot); err != nil {
				db.Close()
				return nil, err
			}
		}
	}

	tool := &stateTool{view: view, account: account, epochID: epochID, db: db, logger: logger}

	opts := []runtime.EnvOption{runtime.WithLogger(logger)}
	if path := strings.TrimSpace(cfg.CodeCachePath); path != "" {
		cache, err := runtime.NewBoltCodeCache(path, nil)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("open code cache: %w", err)
		}
		tool.cache = cache
		opts = append(opts, runtime.WithCodeCache(cache))
	} else {
		cache, err := runtime.NewLRUCodeCache(cfg.CodeCacheSize)
		if err != nil {
			db.Close()
			return nil, err
		}
		opts = append(opts, runtime.WithCodeCache(cache))
	}

	tool.env = runtime.NewEnv(view, account, action, epochID, prevBlock, lastBlock, provider, cfg.Version(), opts...)
	return tool, nil
}

func (t *stateTool) close() {
	observability.Runtime().ObserveInvocation(t.env.TouchedNodes())
	if t.cache != nil {
		if err := t.cache.Close(); err != nil {
			t.logger.Warn("Failed to close code cache", slog.Any("error", err))
		}
	}
	if err := t.db.Close(); err != nil {
		t.logger.Warn("Failed to close database", slog.Any("error", err))
	}
}

// fatal reports a failed command and exits. Boundary errors are unwrapped
// host-side so the operator sees the real cause the sandbox never would.
func (t *stateTool) fatal(context string, err error) {
	var hostErr *runtime.HostError
	if errors.As(err, &hostErr) {
		t.logger.Error(context,
			slog.String("kind", hostErr.Kind().String()),
			slog.Any("error", hostErr.Internal()),
		)
	} else {
		t.logger.Error(context, slog.Any("error", err))
	}
	os.Exit(1)
}

func (t *stateTool) get(keyArg string) {
	ptr, err := t.env.StorageGet(parseBytesArg(keyArg))
	if err != nil {
		t.fatal("Failed to read key", err)
	}
	if ptr == nil {
		fmt.Printf("key %s is absent\n", keyArg)
		return
	}
	data, err := ptr.Deref()
	if err != nil {
		t.fatal("Failed to dereference value", err)
	}
	fmt.Println(formatValue(data))
}

func (t *stateTool) has(keyArg string) {
	ok, err := t.env.StorageHasKey(parseBytesArg(keyArg))
	if err != nil {
		t.fatal("Failed to check key", err)
	}
	fmt.Println(ok)
}

func (t *stateTool) list(prefixArg string) {
	it := t.view.IteratePrefix(state.ContractStoragePrefix(t.account, parseBytesArg(prefixArg)))
	count := 0
	for it.Next() {
		logical, err := state.ParseContractStorageKey(it.Key(), t.account)
		if err != nil {
			t.fatal("Failed to parse stored key", err)
		}
		fmt.Printf("%s\t%s\n", formatKey(logical), formatValue(it.Value()))
		count++
	}
	if err := it.Err(); err != nil {
		t.fatal("Failed to iterate prefix", err)
	}
	fmt.Printf("%d keys\n", count)
}

func (t *stateTool) code(hashArg string) {
	codeHash, err := parseHashFlag("code hash", hashArg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	code, err := t.env.ContractCode(codeHash)
	if err != nil {
		t.fatal("Failed to load contract code", err)
	}
	if code == nil {
		fmt.Printf("no contract code for %s\n", codeHash.Hex())
		return
	}
	fmt.Printf("code %s (%d bytes)\n", code.Hash().Hex(), code.Len())
}

func (t *stateTool) stake(accountArg string) {
	validator, err := types.ParseAccountID(strings.TrimSpace(accountArg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid validator account: %v\n", err)
		os.Exit(1)
	}
	stake, ok, err := t.env.ValidatorStake(validator)
	if err != nil {
		t.fatal("Failed to query validator stake", err)
	}
	if !ok {
		fmt.Printf("%s is not a validator in epoch %d\n", validator, t.epochID)
		return
	}
	fmt.Println(stake.String())
}

func (t *stateTool) totalStake() {
	total, err := t.env.ValidatorTotalStake()
	if err != nil {
		t.fatal("Failed to query total stake", err)
	}
	fmt.Println(total.String())
}

func (t *stateTool) deriveIDs(count int) {
	for i := 0; i < count; i++ {
		fmt.Println(t.env.GenerateDataID().Hex())
	}
}

// parseBytesArg accepts either a plain string key or 0x-prefixed hex for
// binary keys.
func parseBytesArg(arg string) []byte {
	if strings.HasPrefix(arg, "0x") {
		return common.FromHex(arg)
	}
	return []byte(arg)
}

func parseHashFlag(name, value string) (common.Hash, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return common.Hash{}, nil
	}
	raw := common.FromHex(trimmed)
	if len(raw) != common.HashLength {
		return common.Hash{}, fmt.Errorf("Error: --%s must be a 32-byte hex hash", name)
	}
	return common.BytesToHash(raw), nil
}

func formatKey(key []byte) string {
	if isPrintable(key) {
		return string(key)
	}
	return "0x" + common.Bytes2Hex(key)
}

func formatValue(value []byte) string {
	if isPrintable(value) {
		return fmt.Sprintf("%q (%d bytes)", value, len(value))
	}
	return fmt.Sprintf("0x%x (%d bytes)", value, len(value))
}

func isPrintable(data []byte) bool {
	if len(data) == 0 || !utf8.Valid(data) {
		return false
	}
	for _, r := range string(data) {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

func printUsage() {
	fmt.Println("Usage: zenith-state [flags] <command> [args]")
	fmt.Println()
	fmt.Println("Every command runs as a single account-scoped invocation, so --account")
	fmt.Println("is always required. Stake queries additionally need --epoch and")
	fmt.Println("--prev-block to select a registered epoch snapshot.")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  get <key>          Print the value stored under the logical key")
	fmt.Println("  has <key>          Report whether the logical key exists")
	fmt.Println("  list [prefix]      List the account's keys under a logical prefix")
	fmt.Println("  code <hash>        Resolve contract code by its content hash")
	fmt.Println("  stake <account>    Print a validator's stake in the pinned epoch")
	fmt.Println("  total-stake        Print the pinned epoch's aggregate stake")
	fmt.Println("  derive-ids <n>     Derive the invocation's first n data ids")
	fmt.Println("  help               Show this help")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Keys and prefixes are taken verbatim; use a 0x prefix for binary keys.")
}
