package session

const (
	messageSessionInitFailed = "Could not start a transcription session: %v"
	messageStorageFailed     = "Could not prepare session storage: %v"
	messageStorageFallback   = "Could not create a session directory, saving into %s instead"
	messageSessionStarted    = "Session %s started"
	messageSaveDir           = "Saving results to %s"
	messageStopHint          = "Press Ctrl+C to stop"
	messageStopping          = "Stopping, waiting for the final transcript"

	messageInterruptedBeforeStart = "Interrupted before the session started, nothing was recorded"

	messageSourceUnavailable   = "Audio source unavailable: %v"
	messageSourceEnded         = "Audio source ended"
	messageSendFailed          = "Audio streaming stopped: %v"
	messageConnectFailed       = "Could not connect to the transcription service: %v"
	messageConnectionLost      = "Connection to the transcription service lost: %v"
	messagePersistFailed       = "Failed to save %s: %v"
	messageFinalTimeout        = "The final transcript did not arrive within %s"
	messageEndRecordingStalled = "Could not signal the end of recording within %s, closing the connection"

	messageSummary = "Streamed %s of audio, %d utterances, %d sentiment records (%s)"
	messageSavedTo = "Results saved in %s"
)

func stopReasonDetail(reason StopReason) string {
	switch reason {
	case StopReasonInterrupted:
		return "stopped by user"
	case StopReasonCanceled:
		return "cancelled"
	case StopReasonSourceEnded:
		return "source ended"
	case StopReasonConnectionLost:
		return "connection lost"
	case StopReasonRemoteClosed:
		return "closed by the transcription service"
	default:
		return "unknown"
	}
}
