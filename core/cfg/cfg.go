// Package cfg partitions a disassembled instruction stream into basic
// blocks and links them into a control-flow graph for statically
// determinable control flow.
package cfg

import (
	"sort"

	"github.com/delegatescan/delegatescan/core/disasm"
)

// Block is a maximal straight-line run of instructions. Blocks reference
// each other by leader PC (map key into a CFG), not by pointer, so the graph
// has no ownership cycles.
type Block struct {
	ID      int // == StartPC; a stable identifier
	StartPC int
	EndPC   int // inclusive, PC of the block's last instruction
	Instrs  []disasm.Instruction
	Succ    map[int]struct{}
	Pred    map[int]struct{}
}

// CFG is a mapping from leader PC to owned block, plus the designated entry
// block (leader 0, when present).
type CFG struct {
	Blocks map[int]*Block
	Entry  *Block // nil if the program is empty
}

// Build partitions instrs into basic blocks and links successor/predecessor
// edges per the leader-discovery and edge-construction rules: a PC is a
// leader if it is the first instruction, a JUMPDEST, or immediately follows
// a terminator (STOP/RETURN/REVERT/SELFDESTRUCT/JUMP/JUMPI).
func Build(instrs []disasm.Instruction) *CFG {
	c := &CFG{Blocks: map[int]*Block{}}
	if len(instrs) == 0 {
		return c
	}

	leaders := discoverLeaders(instrs)
	blocks := formBlocks(instrs, leaders)
	for _, b := range blocks {
		c.Blocks[b.StartPC] = b
	}
	linkEdges(c, blocks, instrs)

	if e, ok := c.Blocks[0]; ok {
		c.Entry = e
	}
	return c
}

func discoverLeaders(instrs []disasm.Instruction) []int {
	leaderSet := map[int]struct{}{instrs[0].PC: {}}
	for i, in := range instrs {
		if in.Op == disasm.JUMPDEST {
			leaderSet[in.PC] = struct{}{}
		}
		if i > 0 && instrs[i-1].Op.IsTerminator() {
			leaderSet[in.PC] = struct{}{}
		}
	}
	leaders := make([]int, 0, len(leaderSet))
	for pc := range leaderSet {
		leaders = append(leaders, pc)
	}
	sort.Ints(leaders)
	return leaders
}

func formBlocks(instrs []disasm.Instruction, leaders []int) []*Block {
	idx := map[int]int{} // PC -> index into instrs
	for i, in := range instrs {
		idx[in.PC] = i
	}

	blocks := make([]*Block, 0, len(leaders))
	for i, leaderPC := range leaders {
		startIdx := idx[leaderPC]
		var endIdx int
		if i+1 < len(leaders) {
			endIdx = idx[leaders[i+1]] - 1
		} else {
			endIdx = len(instrs) - 1
		}
		b := &Block{
			ID:      leaderPC,
			StartPC: leaderPC,
			EndPC:   instrs[endIdx].PC,
			Instrs:  instrs[startIdx : endIdx+1],
			Succ:    map[int]struct{}{},
			Pred:    map[int]struct{}{},
		}
		blocks = append(blocks, b)
	}
	return blocks
}

func linkEdges(c *CFG, blocks []*Block, instrs []disasm.Instruction) {
	// PC of the instruction immediately following each block's last
	// instruction, used for fallthrough edges.
	nextPC := map[int]int{}
	for i, in := range instrs {
		if i+1 < len(instrs) {
			nextPC[in.PC] = instrs[i+1].PC
		}
	}

	for _, b := range blocks {
		last := b.Instrs[len(b.Instrs)-1]
		switch last.Op {
		case disasm.JUMP:
			// Target is data-dependent; no statically known successor.
		case disasm.JUMPI:
			if fallPC, ok := nextPC[last.PC]; ok {
				addEdge(c, b.StartPC, fallPC)
			}
		case disasm.STOP, disasm.RETURN, disasm.REVERT, disasm.SELFDESTRUCT:
			// No successors.
		default:
			if fallPC, ok := nextPC[last.PC]; ok {
				addEdge(c, b.StartPC, fallPC)
			}
		}
	}
}

func addEdge(c *CFG, fromPC, toPC int) {
	from, ok := c.Blocks[fromPC]
	if !ok {
		return
	}
	to, ok := c.Blocks[toPC]
	if !ok {
		return
	}
	from.Succ[toPC] = struct{}{}
	to.Pred[fromPC] = struct{}{}
}

// SuccPCs returns b's successor leader PCs, sorted for deterministic
// iteration.
func (b *Block) SuccPCs() []int { return sortedKeys(b.Succ) }

// PredPCs returns b's predecessor leader PCs, sorted for deterministic
// iteration.
func (b *Block) PredPCs() []int { return sortedKeys(b.Pred) }

func sortedKeys(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// BlockContaining returns the block owning the instruction at pc, if any.
func (c *CFG) BlockContaining(pc int) (*Block, bool) {
	for _, b := range c.Blocks {
		if pc >= b.StartPC && pc <= b.EndPC {
			return b, true
		}
	}
	return nil, false
}
