// Package commands defines the scanctl CLI and wires the app dependency
// graph for its subcommands.
//
// Commands
//
//   - pair            Validate and confirm a scanned desktop pairing QR
//   - capture         Run a capture session against a paired desktop
//   - export          Copy a finalized session package to a destination
//   - status          Print this device's identity and controller state
//   - trust list      List all known trust records
//   - trust revoke    Revoke a previously trusted peer
//   - run             Drive pair/capture/export from SCAN_* env vars
//
// # Implementation
//
// The root command builds the on-disk wiring (identity/trust stores,
// pairing client, transport dialer, recorder factory, controller) once in
// PersistentPreRunE, so every subcommand shares the same Wire.
package commands
