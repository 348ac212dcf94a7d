package api

import (
	"net/http"

	"github.com/ifeis/server/internal/api/handlers"
	"github.com/ifeis/server/internal/api/middleware"
	"github.com/ifeis/server/internal/api/problem"
	"github.com/ifeis/server/internal/audit"
	"github.com/ifeis/server/internal/auth"
	"github.com/ifeis/server/internal/domain/errs"
	"github.com/ifeis/server/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers is everything the route table mounts.
type Handlers struct {
	Health        *handlers.HealthChecker
	Auth          *handlers.AuthHandler
	Accounts      *handlers.AccountsHandler
	Catalog       *handlers.CatalogHandler
	Leads         *handlers.LeadsHandler
	Stripe        *handlers.StripeHandler
	Feiseanna     *handlers.FeiseannaHandler
	Resources     *handlers.ResourcesHandler
	Payments      *handlers.PaymentsHandler
	Registrations *handlers.RegistrationsHandler
	Stages        *handlers.StagesHandler
	Events        *handlers.EventsHandler
	Scores        *handlers.ScoresHandler
	Guard         *middleware.FeisGuard
	Audit         *audit.Logger

	Version   string
	GitCommit string
	BuildDate string

	// DevLogin mounts /login/dev/{email}. Never set outside development.
	DevLogin bool
	Env      string
}

// Routes builds the mux. Per-account and per-feis routes live on their own
// muxes under /api/accounts/{aid}/ and /api/feiseanna/{fid}/ because their
// patterns overlap the literal siblings (for-person, invitations) in ways a
// single ServeMux rejects.
func Routes(h Handlers) *http.ServeMux {
	login := middleware.RequireCaller(auth.RequireLogin, h.Env)
	god := middleware.RequireCaller(auth.RequireGod, h.Env)
	fn := func(f http.HandlerFunc) http.Handler { return f }

	mux := http.NewServeMux()

	mux.Handle("GET /healthz", handlers.Healthz())
	mux.Handle("GET /readyz", h.Health.Health())
	mux.Handle("GET /version", VersionHandler(h.Version, h.GitCommit, h.BuildDate))
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("GET /api", h.Auth.Status)
	mux.HandleFunc("GET /login/google", h.Auth.GoogleLogin)
	mux.HandleFunc("GET /login/google/callback", h.Auth.GoogleCallback)
	mux.HandleFunc("GET /logout", h.Auth.Logout)
	if h.DevLogin {
		mux.HandleFunc("GET /login/dev/{email}", h.Auth.DevLogin)
	}

	mux.Handle("GET /api/accounts/me", login(fn(h.Accounts.Me)))
	mux.Handle("PUT /api/accounts/me", login(fn(h.Accounts.UpdateMe)))
	mux.Handle("GET /api/accounts/me/dependents", login(fn(h.Accounts.MyDependents)))
	mux.Handle("POST /api/accounts/me/dependents", login(fn(h.Accounts.CreateDependent)))
	mux.Handle("PUT /api/accounts/me/dependents/{pid}", login(fn(h.Accounts.UpdateDependent)))
	mux.Handle("GET /api/accounts/for-person/{pid}", login(fn(h.Accounts.ForPerson)))
	mux.Handle("GET /api/accounts/{id}", login(fn(h.Accounts.Get)))
	mux.Handle("/api/accounts/{aid}/", accountRoutes(h, login))

	for _, kind := range []struct {
		path                              string
		list, one, create, update, delete http.HandlerFunc
	}{
		{"schools", h.Catalog.Schools, h.Catalog.School, h.Catalog.CreateSchool, h.Catalog.UpdateSchool, h.Catalog.DeleteSchool},
		{"dances", h.Catalog.Dances, h.Catalog.Dance, h.Catalog.CreateDance, h.Catalog.UpdateDance, h.Catalog.DeleteDance},
		{"adjudicators", h.Catalog.Adjudicators, h.Catalog.Adjudicator, h.Catalog.CreateAdjudicator, h.Catalog.UpdateAdjudicator, h.Catalog.DeleteAdjudicator},
	} {
		mux.Handle("GET /api/"+kind.path, kind.list)
		mux.Handle("POST /api/"+kind.path, god(kind.create))
		mux.Handle("GET /api/"+kind.path+"/{id}", kind.one)
		mux.Handle("PUT /api/"+kind.path+"/{id}", god(kind.update))
		mux.Handle("DELETE /api/"+kind.path+"/{id}", god(h.audited(kind.path+".delete", kind.path, "id", kind.delete)))
	}

	mux.HandleFunc("POST /api/contact", h.Leads.Create)

	mux.Handle("GET /api/stripe/authorize/{fid}", h.Guard.Require(auth.Writable, auth.IsChair)(fn(h.Stripe.Authorize)))
	mux.Handle("GET /api/stripe/callback", login(fn(h.Stripe.Callback)))

	mux.HandleFunc("GET /api/feiseanna", h.Feiseanna.List)
	mux.Handle("POST /api/feiseanna", login(fn(h.Feiseanna.Create)))
	mux.Handle("GET /api/feiseanna/mine", login(fn(h.Feiseanna.Mine)))
	mux.HandleFunc("GET /api/feiseanna/templates", h.Feiseanna.Templates)
	mux.Handle("GET /api/feiseanna/invitations", god(fn(h.Feiseanna.Invitations)))
	mux.Handle("POST /api/feiseanna/invitations", god(h.audited("invitation.create", "invitation", "", h.Feiseanna.CreateInvitation)))
	mux.Handle("GET /api/feiseanna/invitations/{iid}", login(fn(h.Feiseanna.Invitation)))
	mux.Handle("DELETE /api/feiseanna/invitations/{iid}", god(h.audited("invitation.invalidate", "invitation", "iid", h.Feiseanna.InvalidateInvitation)))
	mux.Handle("GET /api/feiseanna/{fid}", h.Guard.Require(auth.Readable)(fn(h.Feiseanna.Get)))
	mux.Handle("PUT /api/feiseanna/{fid}", h.Guard.Require(auth.Writable, auth.IsChair)(fn(h.Feiseanna.Update)))
	mux.Handle("/api/feiseanna/{fid}/", feisRoutes(h))

	mux.Handle("/api/", notFound(h.Env))
	return mux
}

func accountRoutes(h Handlers, login func(http.Handler) http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	handle := func(pattern string, f http.HandlerFunc) { mux.Handle(pattern, login(f)) }

	handle("GET /api/accounts/{aid}/dependents", h.Accounts.Dependents)
	handle("GET /api/accounts/{aid}/payments", h.Accounts.Payments)
	handle("GET /api/accounts/{aid}/payments-due", h.Accounts.PaymentsDue)
	handle("GET /api/accounts/{aid}/feiseanna", h.Accounts.Feiseanna)
	handle("POST /api/accounts/{aid}/feiseanna", h.Accounts.Star)
	handle("DELETE /api/accounts/{aid}/feiseanna/{fid}", h.Accounts.Unstar)

	mux.Handle("/api/accounts/{aid}/", notFound(h.Env))
	return mux
}

func feisRoutes(h Handlers) *http.ServeMux {
	const p = "/api/feiseanna/{fid}"
	mux := http.NewServeMux()
	handle := func(method, path string, f http.HandlerFunc, checks ...middleware.Check) {
		mux.Handle(method+" "+p+path, h.Guard.Require(checks...)(f))
	}
	// logged records a privileged change in the audit trail.
	logged := func(action, resource, idParam string, f http.HandlerFunc) http.HandlerFunc {
		return h.audited(action, resource, idParam, f).ServeHTTP
	}
	read := []middleware.Check{auth.Readable}
	write := func(extra ...middleware.Check) []middleware.Check {
		return append([]middleware.Check{auth.Writable}, extra...)
	}
	anyRole := middleware.Role("")

	handle("POST", "/finalize", logged("feis.finalize", "feis", "fid", h.Feiseanna.Finalize), write(auth.IsChair)...)
	handle("POST", "/publish", logged("feis.publish", "feis", "fid", h.Feiseanna.Publish), write(auth.IsChair)...)
	handle("DELETE", "/publish", logged("feis.unpublish", "feis", "fid", h.Feiseanna.Unpublish), write(auth.IsChair)...)

	handle("GET", "/attachments", h.Resources.Attachments, read...)
	handle("POST", "/attachments", h.Resources.CreateAttachment, write(auth.IsChair)...)
	handle("GET", "/attachments/{id}", h.Resources.Attachment, read...)
	handle("PUT", "/attachments/{id}", h.Resources.RenameAttachment, write(auth.IsChair)...)
	handle("DELETE", "/attachments/{id}", h.Resources.DeleteAttachment, write(auth.IsChair)...)

	handle("GET", "/placements/by-person/{pid}", h.Feiseanna.PlacementsForPerson, read...)
	handle("GET", "/scores/by-person/{pid}", h.Feiseanna.ScoresForPerson, read...)
	handle("GET", "/participants", h.Feiseanna.Participants, read...)
	handle("GET", "/participants/{num}", h.Feiseanna.Participant, read...)
	handle("GET", "/accounts-without-payments", h.Feiseanna.AccountsWithoutPayment, read[0], anyRole)
	handle("GET", "/participants-by-school", h.Feiseanna.ParticipantsBySchool, read[0], anyRole)

	handle("GET", "/adjudicators", h.Feiseanna.Adjudicators, read...)
	handle("POST", "/adjudicators/{aid}", h.Feiseanna.AttachAdjudicator, write(auth.IsChair)...)
	handle("DELETE", "/adjudicators/{aid}", h.Feiseanna.DetachAdjudicator, write(auth.IsChair)...)

	handle("GET", "/personnel", h.Feiseanna.Personnel, write()...)
	handle("POST", "/personnel", logged("grant.create", "grant", "", h.Feiseanna.AddPersonnel), write(auth.IsChair)...)
	handle("DELETE", "/personnel/{gid}", logged("grant.revoke", "grant", "gid", h.Feiseanna.RemovePersonnel), write(auth.IsChair)...)
	// Any signed-in account may ask about its own roles, even on a feis it
	// cannot otherwise see.
	mux.Handle("GET "+p+"/personnel/me", middleware.RequireCaller(auth.RequireLogin, h.Env)(http.HandlerFunc(h.Feiseanna.MyPersonnel)))

	handle("GET", "/results-queue", h.Feiseanna.ResultsQueue, write(auth.IsAwarder)...)

	handle("GET", "/payments/credits/{aid}", h.Payments.Credits, read...)
	handle("POST", "/payments/credits/{aid}", logged("payment.credit", "account", "aid", h.Payments.AddCredit), read...)
	handle("GET", "/payments/debits/{aid}", h.Payments.Debits, read...)
	handle("GET", "/payments/summary", h.Payments.Summary, write(auth.IsRegistrar)...)

	handle("GET", "/registrations/{pid}", h.Registrations.All, read...)
	handle("POST", "/registrations/{pid}", h.Registrations.Create, read...)
	handle("PUT", "/registrations/{pid}", logged("registration.change_num", "person", "pid", h.Registrations.ChangeNum), write(auth.IsRegistrar)...)
	handle("DELETE", "/registrations/{pid}/{eid}", h.Registrations.Delete, read...)

	handle("GET", "/contacts", h.Resources.Contacts, read...)
	handle("POST", "/contacts", h.Resources.CreateContact, write(auth.IsChair)...)
	handle("GET", "/contacts/{id}", h.Resources.Contact, read...)
	handle("PUT", "/contacts/{id}", h.Resources.UpdateContact, write(auth.IsChair)...)
	handle("DELETE", "/contacts/{id}", h.Resources.DeleteContact, write(auth.IsChair)...)
	handle("GET", "/accommodations", h.Resources.Accommodations, read...)
	handle("POST", "/accommodations", h.Resources.CreateAccommodation, write(auth.IsChair)...)
	handle("GET", "/accommodations/{id}", h.Resources.Accommodation, read...)
	handle("PUT", "/accommodations/{id}", h.Resources.UpdateAccommodation, write(auth.IsChair)...)
	handle("DELETE", "/accommodations/{id}", h.Resources.DeleteAccommodation, write(auth.IsChair)...)

	steward := write(auth.IsSteward)
	handle("GET", "/stages", h.Stages.All, read...)
	handle("POST", "/stages", h.Stages.Create, steward...)
	handle("GET", "/stages/events", h.Stages.Unscheduled, read...)
	handle("GET", "/stages/{sid}", h.Stages.Get, read...)
	handle("PUT", "/stages/{sid}", h.Stages.Update, steward...)
	handle("DELETE", "/stages/{sid}", logged("stage.delete", "stage", "sid", h.Stages.Delete), steward...)
	handle("GET", "/stages/{sid}/schedule", h.Stages.Schedule, read...)
	handle("POST", "/stages/{sid}/attach-event", h.Stages.AttachEvent, steward...)
	handle("POST", "/stages/{sid}/attach-placeholder", h.Stages.AttachPlaceholder, steward...)
	handle("DELETE", "/stages/{sid}/detach-event/{eid}", h.Stages.DetachEvent, steward...)
	handle("DELETE", "/stages/{sid}/detach-placeholder/{iid}", h.Stages.DetachPlaceholder, steward...)

	const ev = "/events/{eid}"
	handle("GET", "/events", h.Events.Query, read...)
	handle("POST", "/events", h.Events.Create, write(auth.IsChair)...)
	handle("GET", ev, h.Events.Get, read...)
	handle("PUT", ev, h.Events.Update, write(auth.IsChair)...)
	handle("DELETE", ev, logged("event.delete", "event", "eid", h.Events.Delete), write(auth.IsChair)...)
	handle("GET", ev+"/participants", h.Events.Participants, read...)

	handle("POST", ev+"/open", h.Events.Open, write()...)
	handle("POST", ev+"/close", h.Events.Close, write()...)
	handle("POST", ev+"/checkin", h.Events.CheckIn, write()...)
	handle("POST", ev+"/reset", logged("event.reset", "event", "eid", h.Events.Reset), write(auth.IsChair)...)
	handle("POST", ev+"/send-to-qa", h.Events.SendToQA, write()...)
	handle("POST", ev+"/send-to-results", h.Events.SendToResults, write()...)
	handle("POST", ev+"/set-announced", h.Events.SetAnnounced, write()...)
	handle("POST", ev+"/recalls-printed", h.Events.RecallsPrinted, write()...)
	handle("POST", ev+"/placements-printed", h.Events.PlacementsPrinted, write()...)

	handle("PUT", ev+"/order-participants", h.Events.OrderParticipants, write()...)
	handle("PUT", ev+"/participants/{pid}", h.Events.UpdateRegistration, write()...)
	handle("POST", ev+"/participants/{pid}/checkin", h.Events.CheckinParticipant, write()...)
	handle("POST", ev+"/participants/{pid}/checkout", h.Events.CheckoutParticipant, write()...)
	handle("POST", ev+"/split", h.Events.Split, write(auth.IsChair)...)
	handle("POST", ev+"/merge/{mid}", h.Events.Merge, write(auth.IsChair)...)

	tabs := write(auth.IsTabulator)
	handle("GET", ev+"/adjudicators", h.Scores.Adjudicators, tabs...)
	handle("GET", ev+"/scores/{aid}", h.Scores.Sheet, tabs...)
	handle("DELETE", ev+"/scores/{aid}", h.Scores.ClearSheet, tabs...)
	handle("POST", ev+"/scores/{aid}/{pid}", h.Scores.Create, tabs...)
	handle("PUT", ev+"/scores/{aid}/score/{sid}", h.Scores.Update, tabs...)
	handle("DELETE", ev+"/scores/{aid}/score/{sid}", h.Scores.Delete, tabs...)

	handle("GET", ev+"/placements", h.Scores.Placements, read...)
	handle("POST", ev+"/placements/cache", h.Scores.CachePlacements, tabs...)
	handle("POST", ev+"/placements/{pid}/collect-award", h.Events.CollectAward, write(auth.IsAwarder)...)
	handle("POST", ev+"/placements/{pid}/return-award", h.Events.ReturnAward, write(auth.IsAwarder)...)

	mux.Handle(p+"/", notFound(h.Env))
	return mux
}

func (h Handlers) audited(action, resource, idParam string, f http.HandlerFunc) http.Handler {
	if h.Audit == nil {
		return f
	}
	return h.Audit.Record(action, resource, idParam)(f)
}

func notFound(env string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		problem.Error(w, r, errs.NotFound("The api endpoint '%s' does not exist.", r.URL.Path), env)
	})
}

// Chain applies middleware so that the first one listed is outermost.
func Chain(h http.Handler, mw ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}
