// Package monitor collects call metrics in memory for inspection and tests.
package monitor
