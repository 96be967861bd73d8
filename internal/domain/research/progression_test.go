package research

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func results(statusBySlot map[int]Status) []*Result {
	var out []*Result
	for slot, st := range statusBySlot {
		out = append(out, &Result{CardSlot: slot, Status: st})
	}
	return out
}

func TestUnlockedSlot(t *testing.T) {
	assert.Equal(t, 6, UnlockedSlot(nil))
	assert.Equal(t, 6, UnlockedSlot(results(map[int]Status{6: StatusReady})))
	assert.Equal(t, 7, UnlockedSlot(results(map[int]Status{6: StatusAccepted, 7: StatusResearching})))
	assert.Equal(t, 9, UnlockedSlot(results(map[int]Status{6: StatusAccepted, 8: StatusAccepted})))
	assert.Equal(t, 10, UnlockedSlot(results(map[int]Status{6: StatusAccepted, 7: StatusAccepted, 8: StatusAccepted, 9: StatusAccepted, 10: StatusAccepted})))
}

func TestCanResearchPrefixClosure(t *testing.T) {
	rs := results(map[int]Status{6: StatusAccepted})
	assert.True(t, CanResearch(nil, 6))
	assert.True(t, CanResearch(rs, 7))
	assert.False(t, CanResearch(rs, 8), "slot 7 not accepted yet")

	rs = results(map[int]Status{6: StatusAccepted, 8: StatusAccepted})
	assert.False(t, CanResearch(rs, 9), "gap at slot 7")

	assert.False(t, CanResearch(nil, 5))
	assert.False(t, CanResearch(nil, 11))
}

func TestCanResearchMatchesDefinitionForAllSlots(t *testing.T) {
	// every subset of accepted slots 6..10
	for mask := 0; mask < 1<<5; mask++ {
		statuses := map[int]Status{}
		for i := 0; i < 5; i++ {
			if mask&(1<<i) != 0 {
				statuses[6+i] = StatusAccepted
			} else {
				statuses[6+i] = StatusReady
			}
		}
		rs := results(statuses)
		for n := 7; n <= 10; n++ {
			want := true
			for s := 6; s < n; s++ {
				if statuses[s] != StatusAccepted {
					want = false
				}
			}
			assert.Equal(t, want, CanResearch(rs, n), "mask=%05b slot=%d", mask, n)
		}
	}
}

func TestChainComplete(t *testing.T) {
	assert.False(t, ChainComplete(results(map[int]Status{9: StatusAccepted})))
	assert.True(t, ChainComplete(results(map[int]Status{10: StatusAccepted})))
}
