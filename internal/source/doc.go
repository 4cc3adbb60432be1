// Package source implements the candidate lookup strategies used to discover a
// municipality's official website: the state government directory and a web search
// fallback. Both degrade to an empty result on failure; they never return errors.
package source
