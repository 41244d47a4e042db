package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/SscSPs/etat_civil_app/internal/apperrors"
)

// CommandKind is an action an actor requests on a declaration.
type CommandKind string

const (
	CommandRouteToHospital CommandKind = "route_to_hospital"
	CommandReject          CommandKind = "reject"
	CommandValidate        CommandKind = "validate"
	CommandVerify          CommandKind = "verify"
	CommandArchive         CommandKind = "archive"
)

// Command carries the data of a requested transition.
// HospitalID must already be known to the hospital registry; checking that is
// the caller's job because it needs I/O.
type Command struct {
	Kind       CommandKind
	HospitalID string // route_to_hospital
	Reason     string // reject
	Authentic  bool   // verify
	Comment    string // verify
}

// WorkflowPolicy holds the product switches of the state machine.
type WorkflowPolicy struct {
	// RequireMunicipalCountersign parks hospital verdicts in hospital_verified /
	// hospital_rejected until a municipal officer confirms them.
	RequireMunicipalCountersign bool
}

type transitionKey struct {
	from DeclarationStatus
	cmd  CommandKind
}

type transitionFunc func(p WorkflowPolicy, d *Declaration, actor Actor, cmd Command, now time.Time) ([]LifecycleEvent, error)

type transition struct {
	roles []Role
	apply transitionFunc
}

var municipalRoles = []Role{RoleMunicipal, RoleAdmin}

// transitions is the complete list of legal moves. Anything not listed here is rejected.
var transitions = map[transitionKey]transition{
	{StatusSubmittedToMunicipal, CommandRouteToHospital}:        {municipalRoles, routeToHospital},
	{StatusHospitalVerificationPending, CommandRouteToHospital}: {municipalRoles, routeToHospital},
	{StatusSubmittedToMunicipal, CommandReject}:                 {municipalRoles, municipalReject},
	{StatusHospitalRejected, CommandReject}:                     {municipalRoles, municipalReject},
	{StatusSubmittedToMunicipal, CommandValidate}:               {municipalRoles, validateWithoutHospital},
	{StatusHospitalVerified, CommandValidate}:                   {municipalRoles, validateAfterVerification},
	{StatusHospitalVerificationPending, CommandVerify}:          {[]Role{RoleHospital}, hospitalVerify},
	{StatusValidated, CommandArchive}:                           {municipalRoles, archive},
}

// Apply runs cmd against a copy of d and returns the new state with the events
// to publish once the new state is stored. d itself is never modified, and on
// error nothing is returned but the error.
func (p WorkflowPolicy) Apply(d Declaration, actor Actor, cmd Command, now time.Time) (Declaration, []LifecycleEvent, error) {
	if d.Status.IsTerminal() {
		return Declaration{}, nil, apperrors.Precondition("declaration %s is %s and accepts no further events", d.ID, d.Status)
	}
	t, ok := transitions[transitionKey{from: d.Status, cmd: cmd.Kind}]
	if !ok {
		return Declaration{}, nil, apperrors.Precondition("%s is not allowed while declaration is %s", cmd.Kind, d.Status)
	}
	if !roleAllowed(t.roles, actor.Role) {
		return Declaration{}, nil, apperrors.Precondition("role %q cannot %s", actor.Role, cmd.Kind)
	}
	if actor.Role == RoleMunicipal && !actor.ActsForOffice(d.MunicipalOfficeID) {
		return Declaration{}, nil, apperrors.Precondition("actor %s is not affiliated with municipal office %s", actor.ID, d.MunicipalOfficeID)
	}

	next := d
	events, err := t.apply(p, &next, actor, cmd, now)
	if err != nil {
		return Declaration{}, nil, err
	}
	next.touch(actor.ID, now)
	return next, events, nil
}

// Allowed reports whether cmd would be accepted from the current status by the
// actor's role, without evaluating guards. Used to render available actions.
func Allowed(d *Declaration, role Role, cmd CommandKind) bool {
	if d.Status.IsTerminal() {
		return false
	}
	t, ok := transitions[transitionKey{from: d.Status, cmd: cmd}]
	return ok && roleAllowed(t.roles, role)
}

func roleAllowed(roles []Role, r Role) bool {
	for _, allowed := range roles {
		if allowed == r {
			return true
		}
	}
	return false
}

func routeToHospital(_ WorkflowPolicy, d *Declaration, actor Actor, cmd Command, now time.Time) ([]LifecycleEvent, error) {
	hospitalID := strings.TrimSpace(cmd.HospitalID)
	if hospitalID == "" {
		return nil, apperrors.Precondition("a verifying hospital must be assigned")
	}
	d.AssignedHospitalID = hospitalID
	d.MunicipalOfficerID = actor.ID
	d.Status = StatusHospitalVerificationPending
	d.SentToHospitalAt = timePtr(now)
	return []LifecycleEvent{
		newEvent(EventRouted, d, now, "declaration sent to hospital for verification",
			map[string]string{"hospitalID": hospitalID}),
	}, nil
}

func municipalReject(_ WorkflowPolicy, d *Declaration, actor Actor, cmd Command, now time.Time) ([]LifecycleEvent, error) {
	reason := strings.TrimSpace(cmd.Reason)
	if reason == "" {
		return nil, apperrors.Precondition("a rejection reason is required")
	}
	d.MunicipalRejectionReason = reason
	d.MunicipalOfficerID = actor.ID
	d.Status = StatusRejected
	d.RejectedAt = timePtr(now)
	return []LifecycleEvent{rejectedEvent(d, now, reason, actor.Role)}, nil
}

func validateWithoutHospital(_ WorkflowPolicy, d *Declaration, actor Actor, _ Command, now time.Time) ([]LifecycleEvent, error) {
	if _, registered := RegisteredHospitalID(d.Hospital); registered {
		return nil, apperrors.Precondition("declaration names a registered hospital and must be verified by it")
	}
	if d.AssignedHospitalID != "" {
		return nil, apperrors.Precondition("declaration is assigned to hospital %s for verification", d.AssignedHospitalID)
	}
	d.MunicipalOfficerID = actor.ID
	return validate(d, now), nil
}

func validateAfterVerification(_ WorkflowPolicy, d *Declaration, actor Actor, _ Command, now time.Time) ([]LifecycleEvent, error) {
	if !d.HasAuthenticBirthCertificate() {
		return nil, apperrors.Precondition("no authentic birth certificate verification is recorded")
	}
	d.MunicipalOfficerID = actor.ID
	return validate(d, now), nil
}

func validate(d *Declaration, now time.Time) []LifecycleEvent {
	d.Status = StatusValidated
	d.ValidatedAt = timePtr(now)
	return []LifecycleEvent{newEvent(EventValidated, d, now, "declaration validated", nil)}
}

func hospitalVerify(p WorkflowPolicy, d *Declaration, actor Actor, cmd Command, now time.Time) ([]LifecycleEvent, error) {
	if !actor.ActsForHospital(d.AssignedHospitalID) {
		return nil, apperrors.Precondition("actor %s is not affiliated with assigned hospital %s", actor.ID, d.AssignedHospitalID)
	}
	comment := strings.TrimSpace(cmd.Comment)
	if !cmd.Authentic && comment == "" {
		return nil, apperrors.Precondition("a comment is required when the birth certificate is disputed")
	}

	d.BirthCertificate.VerifiedBy = actor.ID
	d.BirthCertificate.VerifiedAt = timePtr(now)
	d.BirthCertificate.VerificationComment = comment

	events := []LifecycleEvent{
		newEvent(EventVerified, d, now, comment, map[string]string{
			"result":     strconv.FormatBool(cmd.Authentic),
			"hospitalID": d.AssignedHospitalID,
		}),
	}

	if cmd.Authentic {
		d.BirthCertificate.Authenticity = AuthenticityTrue
		if p.RequireMunicipalCountersign {
			d.Status = StatusHospitalVerified
			return events, nil
		}
		return append(events, validate(d, now)...), nil
	}

	d.BirthCertificate.Authenticity = AuthenticityFalse
	d.HospitalRejectionReason = comment
	if p.RequireMunicipalCountersign {
		d.Status = StatusHospitalRejected
		return events, nil
	}
	d.Status = StatusRejected
	d.RejectedAt = timePtr(now)
	return append(events, rejectedEvent(d, now, comment, actor.Role)), nil
}

func archive(_ WorkflowPolicy, d *Declaration, _ Actor, _ Command, now time.Time) ([]LifecycleEvent, error) {
	d.Status = StatusArchived
	d.ArchivedAt = timePtr(now)
	return []LifecycleEvent{newEvent(EventArchived, d, now, "declaration archived", nil)}, nil
}

func rejectedEvent(d *Declaration, now time.Time, reason string, by Role) LifecycleEvent {
	return newEvent(EventRejected, d, now, reason, map[string]string{"byRole": string(by)})
}

func timePtr(t time.Time) *time.Time { return &t }
