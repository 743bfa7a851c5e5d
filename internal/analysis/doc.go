// Package analysis derives relatedness, summaries, and continuation
// guidance from a thought history.
//
// Every function here is pure: it reads the records it is given and keeps
// no state, so callers may invoke it concurrently on snapshots taken from
// the store.
//
// # Relatedness
//
// FindRelated scores every other thought against a target:
//
//	same stage                +3
//	each shared tag           +1
//	each shared file touched  +2
//	each shared dependency    +1
//	same risk level           +1
//
// Zero-score thoughts are dropped; the rest are ordered by score, then by
// thought number, both descending.
//
// # Summaries and guidance
//
// Summarize aggregates a whole history into counts, a timeline, top tags,
// and a risk profile. Analyze places one thought in the context of its
// history and recommends whether another thought is worthwhile:
//
//	all, _ := st.All(ctx, "")
//	result := analysis.Analyze(t, all)
//	if !result.Guidance.RecommendedNextThoughtNeeded {
//	    // stop the loop
//	}
package analysis
