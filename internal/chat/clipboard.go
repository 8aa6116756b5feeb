package chat

import "github.com/atotto/clipboard"

const (
	copiedNotice     = "Message copied to clipboard"
	copyFailedNotice = "Failed to copy message"
)

// CopyToClipboard puts the literal content on the system clipboard and
// reports the outcome through the notifier. Failures (a headless host,
// denied permission) are reported, never returned.
func CopyToClipboard(content string, notifier Notifier) {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if err := clipboard.WriteAll(content); err != nil {
		notifier.Error(copyFailedNotice)
		return
	}
	notifier.Success(copiedNotice)
}
