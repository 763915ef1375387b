// Package driver runs the host side of the Ethernet audio link.
//
// A Driver owns one link transport and runs three execution contexts:
//
//   - the receive classifier, called by the transport for every frame. It
//     decodes and validates the frame, pushes session control onto the
//     session manager's bounded queue, and applies PCM control and PCM data
//     directly to the session's device. It never blocks.
//   - the session manager worker (session.Manager.Run), which owns every
//     session state transition.
//   - the period transport worker, the only producer of outbound PCM data.
//     Each pass sends at most one ready playback period per active device
//     and sleeps for the poll interval after a pass that sent nothing.
//
// The workers run in an errgroup. Stop detaches the classifier, cancels the
// workers, sends Close to every live peer and closes the link.
//
//	d, err := driver.New(driver.Config{Link: link, Session: session.Config{
//	    Framework: framework,
//	    Device:    session.DeviceTemplate{SampleRate: 48000, BufferPeriods: 8},
//	}})
//	if err != nil {
//	    return err
//	}
//	if err := d.Start(ctx); err != nil {
//	    return err
//	}
//	defer d.Stop()
package driver
