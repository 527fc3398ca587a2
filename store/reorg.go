package store

import (
	"fmt"

	"github.com/tari-project/basenode/chain"
	"github.com/tari-project/basenode/primitives"
)

// Reorg switches the best chain to newChain, an oldest-first sequence of
// blocks whose first block's PrevHash names an ancestor of the current tip
// (the fork point). It rewinds to the fork point, hands the displaced
// blocks' bodies to onDisplaced (nil is fine), and replays newChain; if any
// block in newChain fails to apply, the rewind is itself rewound by
// replaying the displaced blocks back on top, restoring the pre-reorg tip
// exactly (§4.5: "if any apply fails, the rewind is itself rewound"),
// grounded on the teacher's ReorgToTip/findForkPoint/pathFromAncestor shape.
//
// onDisplaced is called after the rewind commits but before newChain is
// applied, matching §4.6's "every transaction in every evicted block is
// reinserted as unconfirmed... before the new chain is applied" — callers
// pass a closure over their mempool.Pool.Reinsert rather than store
// importing mempool directly (store stays leaf-ward of mempool, per
// §3's ownership model).
func (s *Store) Reorg(newChain []*chain.Block, onDisplaced func(displaced []chain.AggregateBody)) error {
	if len(newChain) == 0 {
		return fmt.Errorf("store: empty reorg chain")
	}

	forkHash := newChain[0].Header.PrevHash
	forkHeader, err := s.headerByHash(forkHash)
	if err != nil {
		return fmt.Errorf("store: reorg fork point unknown: %w", err)
	}
	forkHeight := forkHeader.Height

	tip, err := s.Tip()
	if err != nil {
		return err
	}
	if tip.Height < forkHeight {
		return fmt.Errorf("store: reorg fork point is ahead of current tip")
	}

	displaced := make([]*chain.Block, 0, tip.Height-forkHeight)
	for h := forkHeight + 1; h <= tip.Height; h++ {
		b, err := s.FetchBlockByHeight(h)
		if err != nil {
			return fmt.Errorf("store: loading displaced block at height %d: %w", h, err)
		}
		displaced = append(displaced, b)
	}

	if err := s.RewindTo(forkHeight); err != nil {
		return fmt.Errorf("store: rewind to fork point %d: %w", forkHeight, err)
	}

	if onDisplaced != nil && len(displaced) > 0 {
		bodies := make([]chain.AggregateBody, len(displaced))
		for i, b := range displaced {
			bodies[i] = b.Body
		}
		onDisplaced(bodies)
	}

	for i, b := range newChain {
		if decision, err := s.ApplyBlock(b); err != nil || decision != ApplyAppliedAsTip {
			restoreErr := s.restoreDisplacedChain(forkHeight, displaced)
			if restoreErr != nil {
				return fmt.Errorf("store: reorg block %d rejected (%v) AND restoring prior chain failed: %w", i, err, restoreErr)
			}
			if err == nil {
				err = fmt.Errorf("block did not chain to the rewound tip")
			}
			return fmt.Errorf("store: reorg block %d rejected, prior chain restored: %w", i, err)
		}
	}
	return nil
}

func (s *Store) restoreDisplacedChain(forkHeight uint64, displaced []*chain.Block) error {
	tip, err := s.Tip()
	if err != nil {
		return err
	}
	if tip.Height > forkHeight {
		if err := s.RewindTo(forkHeight); err != nil {
			return err
		}
	}
	for _, b := range displaced {
		if _, err := s.ApplyBlock(b); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) headerByHash(hash primitives.Hash) (chain.BlockHeader, error) {
	block, err := s.FetchBlockByHash(hash)
	if err != nil {
		return chain.BlockHeader{}, err
	}
	return block.Header, nil
}
