package notify

var TruncateToMaxBytes = truncateToMaxBytes
