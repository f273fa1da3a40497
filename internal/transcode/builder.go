package transcode

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert/types"

	"fastchannels/internal/adoffsets"
	"fastchannels/internal/esam"
	"fastchannels/internal/services"
)

// BuildJobRequest turns a job template into a create-job request for input.
// Template bookkeeping (name, description, category, ARN, timestamps, type)
// is not carried over. When signal is non-nil its documents are attached and
// offsetTag is mirrored into the job tags and user metadata.
func BuildJobRequest(template *types.JobTemplate, input, role string, signal *esam.Signal, offsetTag string) (*mediaconvert.CreateJobInput, error) {
	if template == nil || template.Settings == nil {
		return nil, services.Wrap(services.ErrConfiguration, "transcode", "build job", "job template has no settings", nil)
	}
	settings, err := jobSettings(template.Settings)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "transcode", "build job",
			fmt.Sprintf("convert template %q settings", aws.ToString(template.Name)), err)
	}
	if len(settings.Inputs) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "transcode", "build job",
			fmt.Sprintf("job template %q defines no inputs", aws.ToString(template.Name)), nil)
	}
	settings.Inputs[0].FileInput = aws.String(input)

	request := &mediaconvert.CreateJobInput{
		JobTemplate:          template.Name,
		Role:                 aws.String(role),
		Settings:             settings,
		AccelerationSettings: template.AccelerationSettings,
		HopDestinations:      template.HopDestinations,
		Priority:             template.Priority,
		Queue:                template.Queue,
		StatusUpdateInterval: template.StatusUpdateInterval,
	}

	if signal != nil {
		settings.Esam = &types.EsamSettings{
			ManifestConfirmConditionNotification: &types.EsamManifestConfirmConditionNotification{
				MccXml: aws.String(signal.ConfirmationXML),
			},
			SignalProcessingNotification: &types.EsamSignalProcessingNotification{
				SccXml: aws.String(signal.NotificationXML),
			},
			ResponseSignalPreroll: aws.Int32(0),
		}
		if offsetTag != "" {
			request.Tags = map[string]string{adoffsets.DefaultKey: offsetTag}
			request.UserMetadata = map[string]string{adoffsets.DefaultKey: offsetTag}
		}
	}
	return request, nil
}

// jobSettings copies the template settings into job settings. The two types
// share field names, so a JSON round trip keeps every shared field and drops
// template-only ones.
func jobSettings(src *types.JobTemplateSettings) (*types.JobSettings, error) {
	raw, err := json.Marshal(src)
	if err != nil {
		return nil, err
	}
	var dst types.JobSettings
	if err := json.Unmarshal(raw, &dst); err != nil {
		return nil, err
	}
	return &dst, nil
}
