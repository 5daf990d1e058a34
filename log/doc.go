/*
Package log is the process-wide logger. There are four inclusive levels, Silent, Major,
Minor and Debug, so setting MinorLevel also produces MajorLevel output. Roughly, Major is
for start-up, shutdown and configuration changes, Minor is for zone maintenance such as
probes and transfers and Debug is for everything else.

The Print and Printf style functions differ from fmt in that multi-line output has every
line prefixed for its level and a trailing newline is neither needed nor repeated.

Zone returns a logger which also prefixes the zone name, as zones are maintained
concurrently and their output interleaves.

Output which is not subject to levels, such as usage, should still be written to Out() so
that tests can capture it.
*/
package log
