package remote

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/mediatailor"
	"github.com/aws/aws-sdk-go-v2/service/mediatailor/types"

	"fastchannels/internal/resources"
)

// MediaTailorAPI is the slice of the ad-stitcher client the pipeline uses.
type MediaTailorAPI interface {
	CreateVodSource(ctx context.Context, params *mediatailor.CreateVodSourceInput, optFns ...func(*mediatailor.Options)) (*mediatailor.CreateVodSourceOutput, error)
	DescribeVodSource(ctx context.Context, params *mediatailor.DescribeVodSourceInput, optFns ...func(*mediatailor.Options)) (*mediatailor.DescribeVodSourceOutput, error)
	UpdateVodSource(ctx context.Context, params *mediatailor.UpdateVodSourceInput, optFns ...func(*mediatailor.Options)) (*mediatailor.UpdateVodSourceOutput, error)
	CreateProgram(ctx context.Context, params *mediatailor.CreateProgramInput, optFns ...func(*mediatailor.Options)) (*mediatailor.CreateProgramOutput, error)
	DescribeProgram(ctx context.Context, params *mediatailor.DescribeProgramInput, optFns ...func(*mediatailor.Options)) (*mediatailor.DescribeProgramOutput, error)
	DeleteProgram(ctx context.Context, params *mediatailor.DeleteProgramInput, optFns ...func(*mediatailor.Options)) (*mediatailor.DeleteProgramOutput, error)
	GetChannelSchedule(ctx context.Context, params *mediatailor.GetChannelScheduleInput, optFns ...func(*mediatailor.Options)) (*mediatailor.GetChannelScheduleOutput, error)
	DescribeSourceLocation(ctx context.Context, params *mediatailor.DescribeSourceLocationInput, optFns ...func(*mediatailor.Options)) (*mediatailor.DescribeSourceLocationOutput, error)
	DescribeChannel(ctx context.Context, params *mediatailor.DescribeChannelInput, optFns ...func(*mediatailor.Options)) (*mediatailor.DescribeChannelOutput, error)
}

const badRequestCode = "BadRequestException"

// VodSourceStore stores VOD sources in one source location.
type VodSourceStore struct {
	Client MediaTailorAPI
}

func vodSourceResource(v resources.VodSource) string {
	return "vod_source/" + v.SourceLocation + "/" + v.Name
}

// Create creates the VOD source with its tags.
func (s *VodSourceStore) Create(ctx context.Context, desired resources.VodSource) (resources.VodSource, error) {
	input := &mediatailor.CreateVodSourceInput{
		VodSourceName:             aws.String(desired.Name),
		SourceLocationName:        aws.String(desired.SourceLocation),
		HttpPackageConfigurations: toHTTPPackageConfigurations(desired.Packages),
	}
	if len(desired.Tags) > 0 {
		input.Tags = desired.Tags
	}
	out, err := s.Client.CreateVodSource(ctx, input)
	if err != nil {
		return resources.VodSource{}, probeCreateFailure(ctx, err, vodSourceResource(desired), badRequestCode,
			func(ctx context.Context) (bool, error) {
				_, err := s.Read(ctx, desired)
				if err != nil {
					return false, err
				}
				return true, nil
			})
	}
	return resources.VodSource{
		Name:           aws.ToString(out.VodSourceName),
		SourceLocation: aws.ToString(out.SourceLocationName),
		Packages:       fromHTTPPackageConfigurations(out.HttpPackageConfigurations),
		Tags:           out.Tags,
	}, nil
}

// Read describes the current VOD source.
func (s *VodSourceStore) Read(ctx context.Context, desired resources.VodSource) (resources.VodSource, error) {
	out, err := s.Client.DescribeVodSource(ctx, &mediatailor.DescribeVodSourceInput{
		VodSourceName:      aws.String(desired.Name),
		SourceLocationName: aws.String(desired.SourceLocation),
	})
	if err != nil {
		return resources.VodSource{}, Classify(err, vodSourceResource(desired))
	}
	return resources.VodSource{
		Name:           aws.ToString(out.VodSourceName),
		SourceLocation: aws.ToString(out.SourceLocationName),
		Packages:       fromHTTPPackageConfigurations(out.HttpPackageConfigurations),
		Tags:           out.Tags,
	}, nil
}

// Update replaces the packaging configurations. Tags cannot be updated.
func (s *VodSourceStore) Update(ctx context.Context, merged resources.VodSource) (resources.VodSource, error) {
	out, err := s.Client.UpdateVodSource(ctx, &mediatailor.UpdateVodSourceInput{
		VodSourceName:             aws.String(merged.Name),
		SourceLocationName:        aws.String(merged.SourceLocation),
		HttpPackageConfigurations: toHTTPPackageConfigurations(merged.Packages),
	})
	if err != nil {
		return resources.VodSource{}, Classify(err, vodSourceResource(merged))
	}
	return resources.VodSource{
		Name:           aws.ToString(out.VodSourceName),
		SourceLocation: aws.ToString(out.SourceLocationName),
		Packages:       fromHTTPPackageConfigurations(out.HttpPackageConfigurations),
		Tags:           out.Tags,
	}, nil
}

func toHTTPPackageConfigurations(refs []resources.PackagingRef) []types.HttpPackageConfiguration {
	configs := make([]types.HttpPackageConfiguration, 0, len(refs))
	for _, ref := range refs {
		configs = append(configs, types.HttpPackageConfiguration{
			Path:        aws.String(ref.ManifestPath),
			SourceGroup: aws.String(ref.ConfigurationID),
			Type:        types.Type(ref.Type),
		})
	}
	return configs
}

func fromHTTPPackageConfigurations(configs []types.HttpPackageConfiguration) []resources.PackagingRef {
	refs := make([]resources.PackagingRef, 0, len(configs))
	for _, cfg := range configs {
		refs = append(refs, resources.PackagingRef{
			ConfigurationID: aws.ToString(cfg.SourceGroup),
			ManifestPath:    aws.ToString(cfg.Path),
			Type:            resources.ManifestType(cfg.Type),
		})
	}
	return refs
}

// ProgramStore creates and deletes channel programs.
type ProgramStore struct {
	Client MediaTailorAPI
}

func programResource(p resources.Program) string {
	return "program/" + p.ChannelName + "/" + p.Name
}

// Create schedules the program.
func (s *ProgramStore) Create(ctx context.Context, desired resources.Program) (resources.Program, error) {
	transition := &types.Transition{
		Type:             aws.String(desired.Transition.Type),
		RelativePosition: types.RelativePosition(desired.Transition.RelativePosition),
	}
	if desired.Transition.RelativeProgram != "" {
		transition.RelativeProgram = aws.String(desired.Transition.RelativeProgram)
	}
	input := &mediatailor.CreateProgramInput{
		ChannelName:           aws.String(desired.ChannelName),
		ProgramName:           aws.String(desired.Name),
		SourceLocationName:    aws.String(desired.SourceLocation),
		VodSourceName:         aws.String(desired.VodSource),
		ScheduleConfiguration: &types.ScheduleConfiguration{Transition: transition},
	}
	if len(desired.AdBreaks) > 0 {
		input.AdBreaks = toAdBreaks(desired.AdBreaks)
	}
	if _, err := s.Client.CreateProgram(ctx, input); err != nil {
		return resources.Program{}, probeCreateFailure(ctx, err, programResource(desired), badRequestCode,
			func(ctx context.Context) (bool, error) {
				_, err := s.Client.DescribeProgram(ctx, &mediatailor.DescribeProgramInput{
					ChannelName: aws.String(desired.ChannelName),
					ProgramName: aws.String(desired.Name),
				})
				if err != nil {
					return false, err
				}
				return true, nil
			})
	}
	return desired, nil
}

// Delete removes the program from the channel.
func (s *ProgramStore) Delete(ctx context.Context, desired resources.Program) error {
	_, err := s.Client.DeleteProgram(ctx, &mediatailor.DeleteProgramInput{
		ChannelName: aws.String(desired.ChannelName),
		ProgramName: aws.String(desired.Name),
	})
	return Classify(err, programResource(desired))
}

// FirstScheduledProgram returns the name of the earliest program on the
// channel schedule, or "" when the schedule is empty.
func (s *ProgramStore) FirstScheduledProgram(ctx context.Context, channel string) (string, error) {
	out, err := s.Client.GetChannelSchedule(ctx, &mediatailor.GetChannelScheduleInput{
		ChannelName:     aws.String(channel),
		DurationMinutes: aws.String("1"),
		MaxResults:      aws.Int32(1),
	})
	if err != nil {
		return "", Classify(err, "channel/"+channel)
	}
	if len(out.Items) == 0 {
		return "", nil
	}
	return aws.ToString(out.Items[0].ProgramName), nil
}

func toAdBreaks(breaks []resources.AdBreak) []types.AdBreak {
	out := make([]types.AdBreak, 0, len(breaks))
	for _, b := range breaks {
		out = append(out, types.AdBreak{
			OffsetMillis: aws.Int64(b.OffsetMillis),
			MessageType:  types.MessageType(b.MessageType),
			SpliceInsertMessage: &types.SpliceInsertMessage{
				AvailNum:        aws.Int32(b.SpliceInsert.AvailNum),
				AvailsExpected:  aws.Int32(b.SpliceInsert.AvailsExpected),
				SpliceEventId:   aws.Int32(b.SpliceInsert.SpliceEventID),
				UniqueProgramId: aws.Int32(b.SpliceInsert.UniqueProgramID),
			},
			Slate: &types.SlateSource{
				SourceLocationName: aws.String(b.Slate.SourceLocation),
				VodSourceName:      aws.String(b.Slate.VodSource),
			},
		})
	}
	return out
}

// SourceLocationExists reports whether the named source location is present.
func SourceLocationExists(ctx context.Context, client MediaTailorAPI, name string) error {
	_, err := client.DescribeSourceLocation(ctx, &mediatailor.DescribeSourceLocationInput{
		SourceLocationName: aws.String(name),
	})
	return Classify(err, "source_location/"+name)
}

// ChannelExists reports whether the named channel is present.
func ChannelExists(ctx context.Context, client MediaTailorAPI, name string) error {
	_, err := client.DescribeChannel(ctx, &mediatailor.DescribeChannelInput{ChannelName: aws.String(name)})
	return Classify(err, "channel/"+name)
}

// VodSourceExists reports whether the named VOD source is present in location.
func VodSourceExists(ctx context.Context, client MediaTailorAPI, location, name string) error {
	_, err := client.DescribeVodSource(ctx, &mediatailor.DescribeVodSourceInput{
		SourceLocationName: aws.String(location),
		VodSourceName:      aws.String(name),
	})
	return Classify(err, "vod_source/"+location+"/"+name)
}
