// Package tokenstore persists serialized OAuth2 credentials between process
// runs.
//
// Three backends with different security and deployment tradeoffs are
// provided:
//   - File: local filesystem storage with atomic writes and 0600 permissions
//   - Env: read-only environment variable access for externally managed secrets
//   - Keyring: OS-native credential storage (macOS Keychain, Windows
//     Credential Manager, Linux Secret Service)
//
// Refresh-token rotation requires a writable backend (file or keyring); the
// env backend only supports credentials whose lifetime is managed elsewhere.
package tokenstore
