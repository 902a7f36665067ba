package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"consensuscore/accounts"
	"consensuscore/bankhash"
	"consensuscore/block"
	"consensuscore/config"
	"consensuscore/crypto"
	"consensuscore/events"
	"consensuscore/finality"
	"consensuscore/logx"
	"consensuscore/schedule"
	"consensuscore/slotdriver"
	"consensuscore/store"
	"consensuscore/tree"
	"consensuscore/voteindex"
)

var nodeDir string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the consensus core node",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runNode(nodeDir); err != nil {
			logx.Errorf("CMD", "node exited: %v", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&nodeDir, "dir", "d", ".", "node directory holding genesis.yml, node.ini, and node.key")
}

// leaderCheckerProxy breaks the tree<->schedule construction cycle: the
// Block Tree needs a LeaderChecker at construction, but the Schedule
// Engine's resolver needs the Block Tree as its TreeView. The proxy is
// built empty and pointed at the real resolver once both exist.
type leaderCheckerProxy struct {
	resolver *schedule.Resolver
}

func (p *leaderCheckerProxy) LeaderFor(slot uint64, tip crypto.Hash) ([32]byte, bool) {
	if p.resolver == nil {
		return [32]byte{}, true
	}
	return p.resolver.LeaderFor(slot, tip)
}

// votersAdapter turns the Vote Index's raw range query into the
// per-epoch VoteParticipation view the Schedule Engine's resolver
// expects.
type votersAdapter struct {
	idx         *voteindex.Index
	epochLength uint64
}

func (v votersAdapter) VotersInEpoch(epoch uint64) []accounts.PubKey {
	lo := epoch * v.epochLength
	hi := lo + v.epochLength - 1
	return v.idx.VotersWithTargetInRange(lo, hi)
}

// fixedSnapshot hands every component the same never-mutated account
// table, standing in for a real Bank's SnapshotAt until one is wired
// in (spec.md §6's Bank is an external collaborator this core consumes
// but never implements; this is the minimal stand-in the skeleton
// binary needs to exercise the other four actors end to end).
type fixedSnapshot struct {
	snap *accounts.Snapshot
}

func (f fixedSnapshot) SnapshotAt(stateRoot crypto.Hash) *accounts.Snapshot {
	return f.snap
}

// totalWeightAdapter answers the Finality Gadget's 2/3 denominator:
// the total weight of principal representatives at the reference
// epoch of a block.
type totalWeightAdapter struct {
	tree      *tree.Tree
	snapshots fixedSnapshot
	threshold *uint256.Int
}

func (t totalWeightAdapter) TotalWeightAt(blockHash crypto.Hash) *uint256.Int {
	b := t.tree.Block(blockHash)
	if b == nil {
		return uint256.NewInt(0)
	}
	snap := t.snapshots.SnapshotAt(b.StateRoot)
	principals := snap.PrincipalRepresentatives(t.threshold)
	return snap.TotalWeight(principals)
}

type voteIndexWeightView struct {
	idx *voteindex.Index
}

func (v voteIndexWeightView) WeightSum(source, target block.Pair) *uint256.Int {
	return v.idx.WeightSum(source, target)
}

// noJustificationView reports zero justified slot and zero weight for
// every tip, standing in while no real justification tracking is wired
// to the Slot Driver. Under it slotdriver.Head would fall through to its
// block-hash tie-break; the Driver itself takes its head from the Block
// Tree's Heaviest() (tallest chain, greater hash on ties).
type noJustificationView struct{}

func (noJustificationView) MostRecentJustifiedSlot(tip crypto.Hash) uint64 { return 0 }
func (noJustificationView) AccumulatedWeight(tip crypto.Hash) uint64      { return 0 }

type noPools struct{}

func (noPools) DrainForSlot(slot uint64) []byte { return nil }

func runNode(dir string) error {
	genesisCfg, err := config.LoadGenesisConfig(filepath.Join(dir, "genesis.yml"))
	if err != nil {
		return fmt.Errorf("load genesis config: %w", err)
	}
	nodeCfg, err := config.LoadNodeConfig(filepath.Join(dir, "node.ini"))
	if err != nil {
		return fmt.Errorf("load node config: %w", err)
	}
	priv, err := config.LoadEd25519PrivKey(filepath.Join(dir, "node.key"))
	if err != nil {
		return fmt.Errorf("load node key: %w", err)
	}
	pub := priv.Public().(ed25519.PublicKey)
	var localAuthor [32]byte
	copy(localAuthor[:], pub)

	genesisPubBytes, err := hex.DecodeString(genesisCfg.GenesisPubKey)
	if err != nil || len(genesisPubBytes) != 32 {
		return fmt.Errorf("invalid genesis_pubkey: %w", err)
	}
	var genesisAuthor accounts.PubKey
	copy(genesisAuthor[:], genesisPubBytes)

	threshold, err := uint256.FromDecimal(genesisCfg.Threshold)
	if err != nil {
		return fmt.Errorf("invalid threshold: %w", err)
	}

	genesisSnapshot := accounts.NewSnapshot([]*accounts.Account{
		{Index: 0, PubKey: genesisAuthor, Balance: uint256.NewInt(1), Representative: genesisAuthor},
	})
	genesisStateRoot := bankhash.StateRoot(genesisSnapshot)
	genesisBlock := block.NewGenesis(genesisStateRoot)

	persisted, err := store.Open(filepath.Join(dir, "data"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer persisted.Close()

	bus := events.NewBus()

	proxy := &leaderCheckerProxy{}
	blockTree := tree.New(genesisBlock, proxy)

	votes := voteindex.New(voteWeightLookup{tree: blockTree, snapshots: fixedSnapshot{snap: genesisSnapshot}})

	resolver := schedule.NewResolver(
		genesisCfg.EpochLength,
		genesisAuthor,
		blockTree,
		votersAdapter{idx: votes, epochLength: genesisCfg.EpochLength},
		fixedSnapshot{snap: genesisSnapshot},
	)
	proxy.resolver = resolver

	gadget := finality.New(
		genesisBlock.Hash,
		blockTree,
		voteIndexWeightView{idx: votes},
		totalWeightAdapter{tree: blockTree, snapshots: fixedSnapshot{snap: genesisSnapshot}, threshold: threshold},
	)
	_ = gadget // consulted by the network-facing vote/block ingestion path, not by this skeleton's slot loop

	driver := slotdriver.New(
		localAuthor,
		priv,
		genesisCfg.SlotDuration,
		time.Now(),
		blockTree,
		resolver,
		noJustificationView{},
		noPools{},
		skeletonBank{snapshot: genesisSnapshot},
		bus,
	)

	logx.Infof("CMD", "consensus core starting: author=%x slot_duration=%s epoch_length=%d actor_channel_buf=%d",
		localAuthor, genesisCfg.SlotDuration, genesisCfg.EpochLength, nodeCfg.ActorChannelBuf)

	stop := make(chan struct{})
	go driver.Run(stop)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	close(stop)
	logx.Info("CMD", "consensus core shutting down")
	return nil
}

// voteWeightLookup answers voteindex.WeightLookup from the same fixed
// snapshot the rest of the skeleton wiring uses.
type voteWeightLookup struct {
	tree      *tree.Tree
	snapshots fixedSnapshot
}

func (v voteWeightLookup) WeightAt(slot uint64, rep accounts.PubKey) *uint256.Int {
	return v.snapshots.snap.RepresentativeWeight(rep)
}

// skeletonBank satisfies slotdriver.Bank with a never-mutated account
// table: the state root a proposed block commits to is always the
// genesis root until a real Bank is wired in.
type skeletonBank struct {
	snapshot *accounts.Snapshot
}

func (b skeletonBank) ComputeStateRoot(parent crypto.Hash, payload []byte) crypto.Hash {
	return bankhash.StateRoot(b.snapshot)
}

func (b skeletonBank) SnapshotAt(stateRoot crypto.Hash) *accounts.Snapshot {
	return b.snapshot
}
