// Package watch keeps a flow file in sync with screenshots dropped into a
// directory.
//
// A Watcher observes the directory (fsnotify, or polling when events are not
// available) and hands every new eligible screenshot to a Session. The Session
// runs the cycle
//
//	Idle -> ArtifactDetected -> Analyzing -> Updating -> Archived -> Idle
//
// one screenshot at a time: analyze it against the flow, patch the flow file,
// then move the screenshot into the archive directory as <stem>_analyzed<ext>,
// or <stem>_failed<ext> when anything went wrong. A screenshot name is taken up
// at most once per session, and archived names are never eligible again.
//
// Shutdown during analysis leaves the screenshot in place; the next session
// finds it on its startup scan.
package watch
