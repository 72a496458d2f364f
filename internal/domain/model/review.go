package model

import "time"

// ReviewStatus mirrors the review stage of an application.
type ReviewStatus string

const (
	ReviewStatusSubmitted ReviewStatus = "submitted"
	ReviewStatusApproved  ReviewStatus = "approved"
	ReviewStatusRejected  ReviewStatus = "rejected"
)

// ReviewSubmission is one versioned review bundle of an application.
type ReviewSubmission struct {
	ID              int64
	ApplicationID   int64
	Version         int
	ContentRefs     []string
	Status          ReviewStatus
	RejectionReason string
	Active          bool
	SubmittedAt     time.Time
	DecidedAt       *time.Time
}

// ExpectedReviewStatus returns the review status an application status implies.
// The second value is false for stages before a review exists, and for rejected
// applications whose review stays as it was.
func ExpectedReviewStatus(status ApplicationStatus) (ReviewStatus, bool) {
	switch status {
	case ApplicationStatusReviewSubmitted:
		return ReviewStatusSubmitted, true
	case ApplicationStatusReviewRejected:
		return ReviewStatusRejected, true
	case ApplicationStatusReviewCompleted, ApplicationStatusRewardRequested, ApplicationStatusRewardCompleted:
		return ReviewStatusApproved, true
	default:
		return "", false
	}
}
