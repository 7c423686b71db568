// Package confloader provides configuration loading mechanism.
//
// This package implements a configuration loader that supports multiple
// sources using koanf as the underlying library.
//
// Features:
//
//   - Multiple Sources: YAML files, environment variables, maps (flags, tests)
//   - Defaults: values already set on the target struct are kept unless a
//     source overrides them
//   - Env mapping: BOOKCACHE_STORAGE_DEFAULT_EXPIRY resolves to
//     storage.default_expiry using the target's koanf tags
//   - Watch Support: change notification for the config file
//
// Priority (highest to lowest):
//
//  1. Command-line flags
//  2. Environment variables
//  3. Configuration files
//  4. Default values
package confloader
