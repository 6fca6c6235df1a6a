package message

// Limits enforced by the remote endpoint on a single message.
const (
	// MaxFiles is the maximum number of attachments one message may carry.
	MaxFiles = 20

	// MaxContentLength is the maximum length of the text content.
	MaxContentLength = 2000
)
