// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

/*
Package supervisor runs Logscope's long-lived services under suture v4.

	RootSupervisor ("logscope")
	├── DataSupervisor ("data-layer")
	│   └── snapshot refresher (RunnerService)
	├── MessagingSupervisor ("messaging-layer")
	│   └── natsquery.Responder (if NATS_ENABLED)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Crashed services restart with backoff; each layer counts failures on its
own. Supervisor events are logged through sutureslog into zerolog via
logging.NewSlogLogger.

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddDataService(services.NewRunnerService("snapshot-refresher", refresher.Run))
	tree.AddAPIService(services.NewHTTPServerService(srv, ":8080", 10*time.Second))
	return tree.Serve(ctx)
*/
package supervisor
