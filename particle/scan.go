package particle

// Blocked prefix sums. Every offset table in the sort pipeline is derived
// from a histogram through one of these.

const (
	scanBlock    = 1024
	scanBlockMin = 32
)

// PrefixSum replaces xs with its exclusive prefix sum in place: xs[0] = 0,
// xs[i] = sum of the original xs[:i]. Callers reserve a trailing slot (set
// to zero beforehand) when they need the grand total. Works for any length,
// including lengths smaller than one block.
func PrefixSum(xs []int32) {
	if len(xs) < scanBlock/4 {
		blockedScan(xs, scanBlockMin)
	} else {
		blockedScan(xs, scanBlock)
	}
}

func blockedScan(xs []int32, block int) {
	if len(xs) == 0 {
		return
	}
	nBlocks := (len(xs) + block - 1) / block
	blockSum := make([]int32, nBlocks)

	local := make([]int32, block)
	for b := 0; b < nBlocks; b++ {
		begin := b * block
		for i := 0; i < block; i++ {
			if begin+i < len(xs) {
				local[i] = xs[begin+i]
			} else {
				local[i] = 0
			}
		}

		// In-block binomial tree: up-sweep, then down-sweep.
		for offset := 1; offset < block; offset *= 2 {
			for i := offset - 1; i+offset < block; i += 2 * offset {
				local[i+offset] += local[i]
			}
		}
		blockSum[b] = local[block-1]
		local[block-1] = 0
		for offset := block >> 1; offset > 0; offset >>= 1 {
			for i := offset - 1; i+offset < block; i += 2 * offset {
				tmp := local[i]
				local[i] = local[i+offset]
				local[i+offset] += tmp
			}
		}

		for i := 0; i < block && begin+i < len(xs); i++ {
			xs[begin+i] = local[i]
		}
	}

	if nBlocks > 1 {
		PrefixSum(blockSum)
		for b := 1; b < nBlocks; b++ {
			begin := b * block
			for i := 0; i < block && begin+i < len(xs); i++ {
				xs[begin+i] += blockSum[b]
			}
		}
	}
}
