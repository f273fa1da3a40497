package pipeline

import (
	"fastchannels/internal/config"
	"fastchannels/internal/eventbus"
)

// StageUnrouted labels deliveries no stage accepts.
const StageUnrouted = "unrouted"

// Route picks the stage for an envelope. stackSource is the source name this
// deployment publishes its own events under.
func Route(env eventbus.Envelope, stackSource, playbackDetailType string) (string, bool) {
	switch env.Source {
	case eventbus.SourceS3:
		return config.StageTranscode, true
	case eventbus.SourceMediaConvert:
		return config.StagePackaging, true
	case eventbus.SourceMediaPackage:
		return config.StageVodSource, true
	}
	if stackSource != "" && env.Source == stackSource && env.DetailType == playbackDetailType {
		return config.StageNotify, true
	}
	return StageUnrouted, false
}
