// Package housing defines the shared domain model for the NJ affordable housing tracker:
// municipalities, website candidates, commitments, status updates, the closed vocabularies
// they use, and the error taxonomy the batch commands report against.
package housing
