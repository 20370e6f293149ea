// Package mediapair matches every scene in a plan with one media asset.
//
// For each scene it plans a search query, fetches a candidate from the stock
// providers, verifies the match with the vision model, and enhances stills.
// Scenes are processed in parallel but the result is always index aligned:
// N scenes in, exactly N assets out. A fetch that fails everywhere gets a
// locally rendered placeholder so downstream stages never see a gap.
package mediapair
