// Package esam synthesizes the Event Signaling and Management documents the
// transcoder uses to place SCTE-35 cue markers in its output manifests.
//
// Every cue appears twice: once in the signal processing notification and
// once in the manifest confirmation. Both carry the cue's position in the
// offset list as its signal ID, and the two documents are only meaningful as
// a pair.
package esam

import (
	"encoding/xml"
	"fmt"
	"strconv"
)

const (
	acquisitionPointIdentity = "AWSElementalMediaTailor"
	spliceCommandType        = "06"
	segmentationTypeID       = "52"
	batchID                  = "abcd"

	signalNamespace       = "urn:cablelabs:iptvservices:esam:xsd:signal:1"
	signalingNamespace    = "urn:cablelabs:md:xsd:signaling:3.0"
	commonNamespace       = "urn:cablelabs:iptvservices:esam:xsd:common:1"
	xsiNamespace          = "http://www.w3.org/2001/XMLSchema-instance"
	confirmationNamespace = "http://www.cablelabs.com/namespaces/metadata/xsd/confirmation/2"

	cueOutTag = "#EXT-X-CUE-OUT:0"
	cueInTag  = "#EXT-X-CUE-IN"
)

// Signal holds the paired signaling documents for one transcode job.
type Signal struct {
	NotificationXML string
	ConfirmationXML string
	Cues            int
}

// Synthesize builds the notification and confirmation documents for offsets
// given in milliseconds. It reports false for an empty list because the
// transcoder rejects signaling settings without cues.
func Synthesize(offsets []int64) (Signal, bool, error) {
	if len(offsets) == 0 {
		return Signal{}, false, nil
	}

	notification := signalProcessingNotification{
		Xmlns:       signalNamespace,
		XmlnsSig:    signalingNamespace,
		XmlnsCommon: commonNamespace,
		XmlnsXsi:    xsiNamespace,
		BatchInfo: batchInfo{
			BatchID: batchID,
			Source:  batchSource{Type: "content:MovieType"},
		},
	}
	confirmation := manifestConfirmConditionNotification{Xmlns: confirmationNamespace}

	for i, offset := range offsets {
		if offset < 0 {
			return Signal{}, false, fmt.Errorf("offset %d at index %d is negative", offset, i)
		}
		seconds := Seconds(offset)
		notification.ResponseSignals = append(notification.ResponseSignals, responseSignal{
			AcquisitionPointIdentity: acquisitionPointIdentity,
			AcquisitionSignalID:      i,
			SignalPointID:            i,
			Action:                   "create",
			NPTPoint:                 nptPoint{Point: seconds},
			SCTE35PointDescriptor: scte35PointDescriptor{
				SpliceCommandType: spliceCommandType,
				SegmentationDescriptorInfo: segmentationDescriptorInfo{
					SegmentEventID: i,
					SegmentTypeID:  segmentationTypeID,
				},
			},
		})
		notification.ConditioningInfos = append(notification.ConditioningInfos, conditioningInfo{
			StartOffset:            "PT" + seconds + "S",
			AcquisitionSignalIDRef: i,
			Duration:               "PT0S",
			Segment:                "PT0S",
		})
		confirmation.ManifestResponses = append(confirmation.ManifestResponses, manifestResponse{
			AcquisitionPointIdentity: acquisitionPointIdentity,
			AcquisitionSignalID:      i,
			Duration:                 "PT0S",
			DataPassThrough:          "true",
			SegmentModify: segmentModify{
				FirstSegment: firstSegment{
					Tags: []manifestTag{{Value: cueOutTag}, {Value: cueInTag}},
				},
			},
		})
	}

	notificationXML, err := render(notification)
	if err != nil {
		return Signal{}, false, fmt.Errorf("render signal notification: %w", err)
	}
	confirmationXML, err := render(confirmation)
	if err != nil {
		return Signal{}, false, fmt.Errorf("render manifest confirmation: %w", err)
	}
	return Signal{
		NotificationXML: notificationXML,
		ConfirmationXML: confirmationXML,
		Cues:            len(offsets),
	}, true, nil
}

// Seconds converts milliseconds to a seconds string with millisecond precision.
func Seconds(millis int64) string {
	return strconv.FormatFloat(float64(millis)/1000, 'f', 3, 64)
}

func render(document any) (string, error) {
	body, err := xml.Marshal(document)
	if err != nil {
		return "", err
	}
	return xml.Header + string(body), nil
}
