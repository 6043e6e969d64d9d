// Package ddsm provides the shared types of the DDSM servo motor driver.
//
// DDSM motors are driven over a 115200 8N1 serial bus using fixed 10-byte
// command frames. Configuration commands (identity assignment, mode switch)
// get no reply from the motor, query commands get exactly one 10-byte frame
// back.
//
// Sub-packages:
//
//	crc    checksum algorithms used by frames
//	frame  10-byte command frame builders
//	link   the serial link and its backends
//	motor  the controller issuing command sequences
//	report publishing of controller events over MQTT
package ddsm
