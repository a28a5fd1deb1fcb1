// coedit - real-time collaborative document editing
// Copyright (C) 2026 the coedit authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/coedit/coedit/cmd/pkg/utils"
	"github.com/coedit/coedit/pkg/errors"
	"github.com/coedit/coedit/pkg/httpUtils"
	"github.com/coedit/coedit/pkg/managers/editor"
	"github.com/coedit/coedit/pkg/managers/history"
	"github.com/coedit/coedit/pkg/models/changeLog"
	"github.com/coedit/coedit/pkg/models/contribution"
	"github.com/coedit/coedit/pkg/models/docVersion"
	"github.com/coedit/coedit/pkg/models/document"
	"github.com/coedit/coedit/pkg/models/user"
	"github.com/coedit/coedit/pkg/options/listenAddress"
	"github.com/coedit/coedit/pkg/pendingOperation"
	"github.com/coedit/coedit/pkg/router"
	"github.com/coedit/coedit/pkg/types"
)

func main() {
	triggerExitCtx, triggerExit := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGUSR1, syscall.SIGTERM,
	)
	defer triggerExit()

	rClient := utils.MustConnectRedis(triggerExitCtx)
	db := utils.MustConnectPostgres(triggerExitCtx)

	o := types.Options{}
	o.FillFromEnv()
	if err := o.Validate(); err != nil {
		panic(errors.Tag(err, "options"))
	}

	dm := document.New(db)
	cl := changeLog.New(db)
	dv := docVersion.New(db)
	cm := contribution.New(db)
	um, err := user.New(db, o.UserCacheSize)
	if err != nil {
		panic(errors.Tag(err, "user manager setup"))
	}

	em := editor.New(editor.Config{
		Retention:   o.RecentRetention,
		GracePeriod: o.GracePeriod,
		AuthTimeout: o.AuthTimeout,
		Palette:     o.CursorPalette,
	}, rClient, dm, cl, dv)
	if err = em.StartListening(triggerExitCtx); err != nil {
		panic(errors.Tag(err, "editor setup"))
	}
	hm := history.New(
		history.Config{DiffStatsEnabled: o.DiffStatsEnabled},
		dv, cl, cm, um, dm, em,
	)

	handler := router.New(em, hm, dm, um, o.WriteQueueDepth)

	eg, ctx := errgroup.WithContext(triggerExitCtx)
	server := http.Server{
		Handler: handler,
	}
	var errServe error
	eg.Go(func() error {
		errServe = httpUtils.ListenAndServe(&server, listenAddress.Parse(3026))
		triggerExit()
		if errServe == http.ErrServerClosed {
			errServe = nil
		}
		return errServe
	})
	eg.Go(func() error {
		<-ctx.Done()
		handler.BeginShutdown()
		ctx2, done := context.WithTimeout(context.Background(), 15*time.Second)
		defer done()
		pendingShutdown := pendingOperation.TrackOperation(func() error {
			return server.Shutdown(ctx2)
		})
		em.FlushAll()
		return pendingShutdown.Wait(ctx2)
	})
	err = eg.Wait()
	if errServe != nil {
		panic(errServe)
	}
	if err != nil {
		panic(err)
	}
}
