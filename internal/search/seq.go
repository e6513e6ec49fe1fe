package search

import "iter"

// Take bounds a match sequence to its first n elements. It replaces the
// break-counter pattern ("one artist only, best tracks are individual
// results") that used to live inside the scoring loops: the pipeline decides
// how many candidates a category is worth, the scorer never does.
//
// Errors pass through uncounted so a terminating error is still observed by
// the consumer.
func Take[T any](seq iter.Seq2[T, error], n int) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		if n <= 0 {
			return
		}
		remaining := n
		for v, err := range seq {
			if !yield(v, err) {
				return
			}
			if err != nil {
				return
			}
			remaining--
			if remaining == 0 {
				return
			}
		}
	}
}

// Collect drains a result sequence into a slice. Intended for callers that
// need the whole ranked list at once (the JSON endpoint, tests); streaming
// consumers should range over the sequence directly.
func Collect[T any](seq iter.Seq[T]) []T {
	var out []T
	for v := range seq {
		out = append(out, v)
	}
	return out
}
