package model

// Campaign is the subset of campaign data the engine snapshots at approval.
type Campaign struct {
	ID           int64
	Title        string
	RewardPoints int64
}
