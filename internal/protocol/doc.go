// Package protocol implements the newline-delimited text protocol spoken by
// the welder controller: framing of the byte stream into lines, parsing of
// lines into typed messages, dispatch to a Handler, and construction of
// outbound commands.
//
// Inbound lines are classified by prefix, first match wins:
//
//	DBG, HB:, WELCOME, OK, ACK:, ACK,   consumed, no message
//	STATUS,k=v,...                      Status
//	CELLS,k=v,...                       Cells
//	WDATA_END,...                       CaptureSummary
//	WDATA,<v>,<i>,<t_us>                Sample
//	VDATA,<v>,<t_us>                    Sample (voltage only)
//	FIRED[,<duration_ms>]               Fired
//	PEDAL:, PEDAL,, EVENT,PEDAL_PRESS   Pedal
//	CHARGER:, CHARGER,                  Charger
//	anything else                       Log
//
// Malformed key=value pairs are skipped individually. A sample line that
// cannot be parsed is delivered as a Log with Malformed set.
package protocol
