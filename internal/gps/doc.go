// Package gps owns the NMEA-0183 input path for the lap timer:
//   - Decoder: byte-wise sentence accumulator with checksum validation
//   - Fix: the current position/velocity/time solution (RMC+GGA subsets)
//   - Service: serial port bring-up handing raw bytes to the session loop
package gps
