package cip

// Result is the shared outcome vocabulary of all plugin callbacks. Each
// callback documents the subset it may legally return; anything else is
// treated as ErrInvalidData by the dispatcher.
type Result uint8

const (
	// ResultDidNotRun means the plugin skipped execution entirely.
	ResultDidNotRun Result = iota
	// ResultDidNotFind means the plugin ran but found nothing.
	ResultDidNotFind
	// ResultFeasible means the checked object satisfies the plugin.
	ResultFeasible
	// ResultInfeasible means the checked object violates the plugin.
	ResultInfeasible
	// ResultUnbounded means the plugin detected unboundedness.
	ResultUnbounded
	// ResultCutoff means the current node can be pruned.
	ResultCutoff
	// ResultSeparated means a cutting plane was added.
	ResultSeparated
	// ResultNewRound means a cut was added that forces a new separation round.
	ResultNewRound
	// ResultReducedDom means a domain was tightened.
	ResultReducedDom
	// ResultConsAdded means a constraint was added.
	ResultConsAdded
	// ResultConsChanged means a constraint was modified or upgraded.
	ResultConsChanged
	// ResultBranched means the plugin created child nodes.
	ResultBranched
	// ResultDelayed means the plugin wants to run again after the others.
	ResultDelayed
	// ResultSuccess means the plugin achieved its purpose.
	ResultSuccess
	// ResultSolveLP means enforcement demands solving the node's LP first.
	ResultSolveLP
)

// String returns the lowercase result name.
func (r Result) String() string {
	names := [...]string{
		"didnotrun", "didnotfind", "feasible", "infeasible", "unbounded",
		"cutoff", "separated", "newround", "reduceddom", "consadded",
		"conschanged", "branched", "delayed", "success", "solvelp",
	}
	if int(r) < len(names) {
		return names[r]
	}

	return "invalid"
}
