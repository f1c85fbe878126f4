package statistics

// DefaultMCMCAverages builds one acceptance-rate average per replica
// for the given sampling variable (default "x" upstream). Grounded on
// original_source/rexfw/convenience/statistics.py's
// create_default_MCMC_averages.
func DefaultMCMCAverages(replicaNames []string, variable string) []LoggedQuantity {
	out := make([]LoggedQuantity, 0, len(replicaNames))
	for _, name := range replicaNames {
		out = append(out, NewMCMCAcceptanceRateAverage(name, variable))
	}
	return out
}

// DefaultStepsizes builds one stepsize tracker per replica for the
// given sampling variable. Grounded on create_default_stepsizes.
func DefaultStepsizes(replicaNames []string, variable string) []LoggedQuantity {
	out := make([]LoggedQuantity, 0, len(replicaNames))
	for _, name := range replicaNames {
		out = append(out, NewMCMCStepsize(name, variable))
	}
	return out
}

// DefaultPairs builds the standard nearest-neighbour pairing (r1,r2),
// (r2,r3), … used by create_default_RE_averages/works/heats.
func DefaultPairs(replicaNames []string) [][2]string {
	if len(replicaNames) < 2 {
		return nil
	}
	out := make([][2]string, 0, len(replicaNames)-1)
	for i := 0; i < len(replicaNames)-1; i++ {
		out = append(out, [2]string{replicaNames[i], replicaNames[i+1]})
	}
	return out
}

// DefaultREAverages builds one acceptance-rate average per adjacent
// replica pair. Grounded on create_default_RE_averages.
func DefaultREAverages(replicaNames []string) []LoggedQuantity {
	pairs := DefaultPairs(replicaNames)
	out := make([]LoggedQuantity, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, NewREAcceptanceRateAverage(p[0], p[1]))
	}
	return out
}

// DefaultWorks/DefaultHeats build one raw-sample quantity per adjacent
// pair, named to match the *RE*Statistics.Works()/Heats() grouping.
// Grounded on create_default_works/create_default_heats.
func DefaultWorks(replicaNames []string) []LoggedQuantity {
	pairs := DefaultPairs(replicaNames)
	out := make([]LoggedQuantity, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, &rawSample{name: "re_works", replicaA: p[0], replicaB: p[1]})
	}
	return out
}

func DefaultHeats(replicaNames []string) []LoggedQuantity {
	pairs := DefaultPairs(replicaNames)
	out := make([]LoggedQuantity, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, &rawSample{name: "re_heats", replicaA: p[0], replicaB: p[1]})
	}
	return out
}
