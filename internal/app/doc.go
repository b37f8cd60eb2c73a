// Package app wires the on-disk stores, pairing client, transport dialer,
// recorder factory, and lifecycle controller from a Config, exposing them
// via Wire for cmd/scanctl to drive.
package app
