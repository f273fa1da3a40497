package preflight

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"

	"fastchannels/internal/awsclient"
	"fastchannels/internal/config"
	"fastchannels/internal/remote"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Env carries the SDK configuration and service clients the checks call.
type Env struct {
	SDK          aws.Config
	MediaConvert remote.MediaConvertAPI
	MediaPackage remote.MediaPackageAPI
	MediaTailor  remote.MediaTailorAPI
}

// EnvFromClients adapts constructed service clients for RunAll.
func EnvFromClients(clients *awsclient.Clients) Env {
	return Env{
		SDK:          clients.Config,
		MediaConvert: clients.MediaConvert,
		MediaPackage: clients.MediaPackage,
		MediaTailor:  clients.MediaTailor,
	}
}

// RunAll executes all applicable preflight checks for the given config.
// Remote checks are skipped when credentials cannot be resolved.
func RunAll(ctx context.Context, cfg *config.Config, env Env) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{CheckDirectoryAccess("State directory", cfg.Paths.StateDir)}

	creds := CheckCredentials(ctx, env.SDK)
	results = append(results, creds)
	if !creds.Passed {
		return results
	}

	if err := cfg.RequireStage(config.StageTranscode); err != nil {
		results = append(results, disabled("Job template", err))
	} else {
		results = append(results, CheckJobTemplate(ctx, env.MediaConvert, cfg.Transcode.JobTemplate))
	}

	if err := cfg.RequireStage(config.StagePackaging); err != nil {
		results = append(results, disabled("Packaging group", err))
	} else {
		results = append(results, CheckPackagingGroup(ctx, env.MediaPackage, cfg.Packaging.GroupID))
	}

	if err := cfg.RequireStage(config.StageVodSource); err != nil {
		results = append(results, disabled("Source location", err))
		return results
	}
	results = append(results, CheckSourceLocation(ctx, env.MediaTailor, cfg.Scheduling.SourceLocation))

	if cfg.SchedulingEnabled() {
		results = append(results,
			CheckChannel(ctx, env.MediaTailor, cfg.Scheduling.ChannelName),
			CheckSlate(ctx, env.MediaTailor, cfg.Scheduling.SourceLocation, cfg.Scheduling.SlateVodSource),
		)
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

func disabled(name string, reason error) Result {
	return Result{Name: name, Passed: true, Detail: "Disabled: " + reason.Error()}
}
