package balance

import "github.com/smallbiznis/rebateplan/internal/rebate/domain"

// Finalize closes out every customer entry (remaining = total - used,
// combined used = dm + nonDm) and rebuilds the grand-total row from scratch.
func Finalize(all domain.CheckBalanceAll) domain.CheckBalanceAll {
	var grand domain.CheckBalanceEach
	for name, each := range all {
		if name == domain.AllCustomersKey {
			continue
		}
		each = finalizeEach(each)
		all[name] = each

		grand.DM.Total += each.DM.Total
		grand.DM.Used += each.DM.Used
		grand.NonDM.Total += each.NonDM.Total
		grand.NonDM.Used += each.NonDM.Used
		grand.Total.Total += each.Total.Total
	}
	all[domain.AllCustomersKey] = finalizeEach(grand)
	return all
}

// Merge patches the aggregate when a single customer's figures changed:
// subtract the previous contribution, add the new one, then recompute every
// remaining from total - used. Unknown customers are a no-op.
//
// Remaining is always recomputed rather than delta-merged, for every bucket
// including the combined one, so a merge sequence stays equal to a full
// recompute of the same state.
func Merge(all domain.CheckBalanceAll, customer string, changed domain.CheckBalanceEach) domain.CheckBalanceAll {
	out := all.Clone()
	prev, ok := out[customer]
	if !ok {
		return out
	}

	grand := out[domain.AllCustomersKey]
	grand.DM.Total += changed.DM.Total - prev.DM.Total
	grand.DM.Used += changed.DM.Used - prev.DM.Used
	grand.NonDM.Total += changed.NonDM.Total - prev.NonDM.Total
	grand.NonDM.Used += changed.NonDM.Used - prev.NonDM.Used
	grand.Total.Total += changed.Total.Total - prev.Total.Total
	grand.Total.Used += changed.Total.Used - prev.Total.Used
	grand.DM.Remaining = grand.DM.Total - grand.DM.Used
	grand.NonDM.Remaining = grand.NonDM.Total - grand.NonDM.Used
	grand.Total.Remaining = grand.Total.Total - grand.Total.Used

	out[customer] = changed
	out[domain.AllCustomersKey] = grand
	return out
}

func finalizeEach(each domain.CheckBalanceEach) domain.CheckBalanceEach {
	each.DM.Remaining = each.DM.Total - each.DM.Used
	each.NonDM.Remaining = each.NonDM.Total - each.NonDM.Used
	each.Total.Used = each.DM.Used + each.NonDM.Used
	each.Total.Remaining = each.Total.Total - each.Total.Used
	return each
}
