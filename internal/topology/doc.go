// Package topology models a point-to-point lab as a graph of devices and links.
//
// Build parses endpoint tokens into a Registry of devices and an ordered list
// of links. ScheduleStartup and ExpandAll then annotate the devices; both run
// only after the whole graph exists. AllocatePorts maps a publish policy onto
// eligible devices. Nothing here talks to a cluster.
package topology
