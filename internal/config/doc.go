// Package config loads, normalizes, and validates pipeline configuration.
//
// It supplies repository defaults, reads TOML files, and overlays the
// deployment environment variables (MediaConvertTranscodeRoleArn,
// MediaPackagePackagingGroupId, MediaTailorChannelName, ...). The Config type
// centralizes every knob the stages, daemon, and CLI need, including the
// jitter and retry windows used when reconciling remote resources.
//
// Always obtain settings through this package so downstream code receives
// trimmed values, canonical log formats, and clear validation errors.
package config
