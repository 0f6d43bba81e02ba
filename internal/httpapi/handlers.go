package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/playdar/resolverd/internal/auth"
	"github.com/playdar/resolverd/internal/comet"
	"github.com/playdar/resolverd/internal/httpbridge"
	"github.com/playdar/resolverd/internal/ids"
	"github.com/playdar/resolverd/internal/perr"
	"github.com/playdar/resolverd/internal/resolver"
)

// handleStatus serves the daemon's status page (§6 `/`).
func (a *App) handleStatus(c *gin.Context) {
	body := fmt.Sprintf(
		"<h1>%s</h1><p>uptime: %s</p><p>live queries: %d</p><p>plugins: %d</p>",
		htmlEscape(a.Config.Name),
		time.Since(a.StartedAt).Round(time.Second),
		a.Registry.Len(),
		len(a.Pipeline.Plugins()),
	)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(body))
}

// handleCrossdomain serves a permissive flash cross-domain policy, matching
// the original daemon's unconditional allow (flash clients are long dead,
// but the route is part of the documented surface).
func (a *App) handleCrossdomain(c *gin.Context) {
	const xml = `<?xml version="1.0"?>
<!DOCTYPE cross-domain-policy SYSTEM "http://www.adobe.com/xml/dtds/cross-domain-policy.dtd">
<cross-domain-policy><allow-access-from domain="*"/></cross-domain-policy>`
	c.Data(http.StatusOK, "text/xml; charset=utf-8", []byte(xml))
}

// handleAuth1 issues a form token for a calling website's auth popup
// (§6 `/auth_1`).
func (a *App) handleAuth1(c *gin.Context) {
	website := c.Query("website")
	name := c.Query("name")
	if website == "" || name == "" {
		perr.Abort(c, perr.BadRequest("website and name are required"))
		return
	}

	ftoken, err := a.Issuer.NewFormToken()
	if err != nil {
		perr.Abort(c, perr.Wrap(perr.KindBadRequest, "generate form token", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"formtoken": string(ftoken)})
}

// handleAuth2 exchanges an approved form token for a bearer auth token
// (§6 `/auth_2`).
func (a *App) handleAuth2(c *gin.Context) {
	website := c.PostForm("website")
	name := c.PostForm("name")
	formtoken := c.PostForm("formtoken")
	if website == "" || name == "" || formtoken == "" {
		perr.Abort(c, perr.BadRequest("website, name and formtoken are required"))
		return
	}

	tok, ok, err := a.Issuer.Exchange(auth.FormToken(formtoken), website, name, c.Request.UserAgent())
	if err != nil {
		perr.Abort(c, perr.Wrap(perr.KindBadRequest, "exchange form token", err))
		return
	}
	if !ok {
		perr.Abort(c, perr.Unauthorized("unknown or already-used form token"))
		return
	}

	if recv := c.PostForm("receiverurl"); recv != "" && !strings.ContainsAny(recv, "\r\n") {
		c.Redirect(http.StatusMovedPermanently, recv+"?authtoken="+string(tok))
		return
	}
	c.JSON(http.StatusOK, gin.H{"authtoken": string(tok)})
}

// handleShutdown stops the daemon (§6 `/shutdown`).
func (a *App) handleShutdown(c *gin.Context) {
	c.Status(http.StatusOK)
	if a.Shutdown != nil {
		a.Shutdown()
	}
}

// handleSettingsConfig renders the current configuration as read-only JSON
// (§6 `/settings/config`).
func (a *App) handleSettingsConfig(c *gin.Context) {
	c.JSON(http.StatusOK, a.Config)
}

// handleSettingsAuth answers with a fixed note; it neither lists nor revokes
// authenticated sites, since this build has no persistent auth store.
func (a *App) handleSettingsAuth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"note": "authenticated-site listing requires a persistent auth store, out of scope here"})
}

// handleQueriesRoot reports the number of live queries, and handles
// cancel_query posts (§6 `/queries`). It does not list the individual
// queries or their qids.
func (a *App) handleQueriesRoot(c *gin.Context) {
	if c.Request.Method == http.MethodPost {
		qid := c.PostForm("qid")
		if qid != "" && c.PostForm("cancel_query") != "" {
			_ = a.Registry.Cancel(ids.QID(qid))
		}
	}

	c.JSON(http.StatusOK, gin.H{"live_queries": a.Registry.Len()})
}

// handleQueryByID inspects or cancels a single query by qid
// (§6 `/queries/<qid>`).
func (a *App) handleQueryByID(c *gin.Context) {
	qid := ids.QID(c.Param("qid"))

	if c.Request.Method == http.MethodPost && c.PostForm("cancel_query") != "" {
		if err := a.Registry.Cancel(qid); err != nil {
			perr.Abort(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"cancelled": string(qid)})
		return
	}

	rq, err := a.Registry.GetQuery(qid)
	if err != nil {
		perr.Abort(c, err)
		return
	}

	if rq.Cancelled() {
		c.JSON(http.StatusOK, gin.H{"qid": string(qid), "cancelled": true})
		return
	}

	results := rq.Results()
	items := make([]map[string]interface{}, 0, len(results))
	for _, item := range results {
		items = append(items, item.ToJSON())
	}

	c.JSON(http.StatusOK, gin.H{
		"qid":     string(qid),
		"params":  rq.Params,
		"solved":  rq.Solved(),
		"results": items,
		"from":    rq.FromName,
	})
}

// quickplayWait is how long quickplay always waits before it looks at the
// query's results, matching the original daemon's fixed two-second grace
// period.
const quickplayWait = 2 * time.Second

// handleQuickplay dispatches a track query, waits quickplayWait, then
// redirects to its best result's /sid/<sid> URL, or answers 404 when there
// is none (§6 `/quickplay`).
func (a *App) handleQuickplay(c *gin.Context) {
	artist := c.Param("artist")
	album := c.Param("album")
	track := c.Param("track")
	if artist == "" || track == "" {
		perr.Abort(c, perr.BadRequest("artist and track are required"))
		return
	}

	rq := resolver.NewQuery(ids.NewQID(), resolver.OriginLocal, a.Config.Name, resolver.ModeNormal, map[string]interface{}{
		"artist": artist,
		"album":  album,
		"track":  track,
	})

	qid, err := a.Pipeline.Dispatch(rq, false)
	if err != nil {
		perr.Abort(c, err)
		return
	}

	timer := time.NewTimer(quickplayWait)
	defer timer.Stop()
	select {
	case <-c.Request.Context().Done():
		return
	case <-timer.C:
	}

	results, err := a.Registry.GetResults(qid)
	if err != nil || len(results) == 0 {
		perr.Abort(c, perr.NotFound("no results for quickplay query"))
		return
	}

	c.Redirect(http.StatusFound, "/sid/"+string(results[0].SID))
}

// handleSID streams the audio behind a previously-reported source-uid
// (§6 `/sid/<sid>`) — open to any origin.
func (a *App) handleSID(c *gin.Context) {
	sid := ids.SID(c.Param("sid"))

	plugin, item, err := a.Registry.GetSource(sid)
	if err != nil {
		perr.Abort(c, err)
		return
	}

	strat, err := plugin.Plugin.Stream(c.Request.Context(), item)
	if err != nil {
		perr.Abort(c, err)
		return
	}
	if strat == nil {
		perr.Abort(c, perr.NotFound("source "+string(sid)+" has no playable stream"))
		return
	}

	// Status and a possibly-partial body are already written by the time
	// any error surfaces here; Pump logs read and write failures.
	_ = httpbridge.Pump(c.Request.Context(), c.Writer, strat)
}

// handleComet multiplexes one or more queries' incremental results into a
// single open-ended JSON array response (§6 `/comet`, §4.5).
func (a *App) handleComet(c *gin.Context) {
	sessionID := c.Query("session")
	qid := c.Query("query")
	if sessionID == "" || qid == "" {
		perr.Abort(c, perr.BadRequest("session and query are required"))
		return
	}

	sess := a.cometSession(sessionID)
	if err := sess.Follow(a.Registry, ids.QID(qid)); err != nil {
		perr.Abort(c, err)
		return
	}

	c.Header("Content-Type", "text/javascript; charset=utf-8")
	c.Status(http.StatusOK)
	flusher, _ := c.Writer.(http.Flusher)

	ctx := c.Request.Context()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		chunk, ok := sess.NextWrite()
		if !ok {
			return
		}
		if chunk != nil {
			if _, err := c.Writer.Write(chunk); err != nil {
				a.cancelCometSession(sessionID, sess)
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
			continue
		}

		select {
		case <-ctx.Done():
			a.cancelCometSession(sessionID, sess)
			return
		case <-ticker.C:
		}
	}
}

func (a *App) cancelCometSession(id string, sess *comet.Session) {
	sess.Cancel()
	a.cometMu.Lock()
	delete(a.cometSessions, id)
	a.cometMu.Unlock()
}

// cometSession returns the existing session for id, or creates and tracks a
// new one. Comet clients reuse the same session id across calls that ask
// it to follow additional queries.
func (a *App) cometSession(id string) *comet.Session {
	a.cometMu.Lock()
	defer a.cometMu.Unlock()

	if sess, ok := a.cometSessions[id]; ok {
		return sess
	}
	sess := comet.New()
	a.cometSessions[id] = sess
	return sess
}

// handlePluginURL delegates /<plugin>/... sub-URLs to the named plugin,
// when the plugin exposes an http.Handler (§6 `/<plugin>/...`).
func (a *App) handlePluginURL(c *gin.Context) {
	name := c.Param("plugin")
	pa, ok := a.Pipeline.Find(name)
	if !ok {
		perr.Abort(c, perr.NotFound("plugin "+name))
		return
	}
	handler, ok := pa.Plugin.(interface {
		ServeHTTP(http.ResponseWriter, *http.Request)
	})
	if !ok {
		perr.Abort(c, perr.NotFound("plugin "+name+" exposes no sub-handler"))
		return
	}
	handler.ServeHTTP(c.Writer, c.Request)
}
