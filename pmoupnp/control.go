package pmoupnp

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"gargoton.petite-maison-orange.fr/eric/pmovolume/mainvolume"
	"gargoton.petite-maison-orange.fr/eric/pmovolume/pmolog"
	"gargoton.petite-maison-orange.fr/eric/pmovolume/soap"
)

const (
	ActionNameGet           = "Get"
	ActionNameSet           = "Set"
	ActionNameGetAll        = "GetAll"
	ActionNameSwitchMode    = "SwitchMode"
	ActionNameSetCallActive = "SetCallActive"
)

// Vendor error codes of the property protocol.
const (
	ErrorUnknownProperty  = 801
	ErrorReadOnlyProperty = 802
	ErrorRateLimited      = 803
)

const maxControlBody = 64 << 10

// ControlHandler serves the SOAP control URL.
func (svc *Service) ControlHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxControlBody))
		if err != nil {
			svc.logger.Errorf("❌ Failed to read body: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		svc.logger.Debugf("📡 Control request on %s\n%s", svc.Name(), pmolog.XMLDetails(string(body)))

		env, err := soap.ParseSOAPEnvelope(body)
		if err != nil {
			svc.logger.Errorf("❌ Failed to parse SOAP envelope: %v", err)
			svc.writeFault(w, "", &soap.UPnPError{Code: soap.ErrorInvalidArgs, Description: "Invalid Args"})
			return
		}

		req, err := soap.ParseUPnPAction(env)
		if err != nil {
			svc.logger.Errorf("❌ Failed to parse SOAP Action: %v", err)
			svc.writeFault(w, "", &soap.UPnPError{Code: soap.ErrorInvalidArgs, Description: "Invalid Args"})
			return
		}

		if header := r.Header.Get("SOAPACTION"); header != "" && !strings.HasSuffix(strings.Trim(header, `"`), "#"+req.Name) {
			svc.logger.Warnf("⚠️ SOAPACTION %s does not match body action %s", header, req.Name)
		}

		svc.logger.Info(req.ToMarkdown())

		out, err := svc.Invoke(req)
		if err != nil {
			svc.writeFault(w, req.Name, FaultFor(err))
			return
		}

		resp, err := soap.BuildUPnPResponse(svc.ServiceType(), req.Name, out)
		if err != nil {
			svc.writeFault(w, req.Name, &soap.UPnPError{Code: soap.ErrorActionFailed, Description: err.Error()})
			return
		}

		svc.metrics.ControlRequest(req.Name, 0)
		w.Header().Set("Content-Type", `text/xml; charset="utf-8"`)
		w.Header().Set("EXT", "")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(resp)
	}
}

func (svc *Service) writeFault(w http.ResponseWriter, action string, fault *soap.UPnPError) {
	svc.logger.Warnf("❌ Action %s failed: %v", action, fault)
	if action == "" {
		action = "invalid"
	}
	svc.metrics.ControlRequest(action, fault.Code)

	body, err := soap.BuildUPnPFault(fault.Code, fault.Description)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", `text/xml; charset="utf-8"`)
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write(body)
}

// Invoke runs a parsed control action against the volume service and
// returns the output arguments.
func (svc *Service) Invoke(req *soap.ActionRequest) ([]soap.Arg, error) {
	action, ok := svc.actions.Get(req.Name)
	if !ok {
		return nil, &soap.UPnPError{Code: soap.ErrorInvalidAction, Description: "Invalid Action"}
	}

	for arg := range action.InArguments() {
		if _, ok := req.Arg(arg.Name()); !ok {
			return nil, &soap.UPnPError{
				Code:        soap.ErrorInvalidArgs,
				Description: fmt.Sprintf("Invalid Args: missing %s", arg.Name()),
			}
		}
	}

	if iface, ok := req.Arg("Interface"); ok {
		iface = strings.TrimSpace(iface)
		if iface != "" && iface != mainvolume.InterfaceName {
			return nil, &soap.UPnPError{
				Code:        soap.ErrorInvalidArgs,
				Description: fmt.Sprintf("Invalid Args: unknown interface %s", iface),
			}
		}
	}

	arg := func(name string) string {
		v, _ := req.Arg(name)
		return strings.TrimSpace(v)
	}

	switch req.Name {
	case ActionNameGet:
		v, err := svc.volume.Get(arg("PropertyName"))
		if err != nil {
			return nil, err
		}
		return []soap.Arg{{Name: "Value", Value: formatUint(v)}}, nil

	case ActionNameSet:
		return nil, svc.volume.Set(arg("PropertyName"), arg("Value"))

	case ActionNameGetAll:
		snap := svc.volume.GetAll()
		return []soap.Arg{
			{Name: mainvolume.PropertyInterfaceRevision.String(), Value: formatUint(snap.InterfaceRevision)},
			{Name: mainvolume.PropertyStepCount.String(), Value: formatUint(snap.StepCount)},
			{Name: mainvolume.PropertyCurrentStep.String(), Value: formatUint(snap.CurrentStep)},
		}, nil

	case ActionNameSwitchMode:
		return nil, svc.modes.SwitchMode(arg("Mode"))

	case ActionNameSetCallActive:
		active, err := parseBoolean(arg("Active"))
		if err != nil {
			return nil, err
		}
		return nil, svc.modes.SetCallActive(active)
	}

	return nil, &soap.UPnPError{Code: soap.ErrorInvalidAction, Description: "Invalid Action"}
}

// FaultFor maps an action error to the UPnP error reported to the caller.
func FaultFor(err error) *soap.UPnPError {
	var upnpErr *soap.UPnPError
	if errors.As(err, &upnpErr) {
		return upnpErr
	}

	code := soap.ErrorActionFailed
	switch {
	case errors.Is(err, mainvolume.ErrInvalidArgument):
		code = soap.ErrorArgumentValueInvalid
	case errors.Is(err, mainvolume.ErrOutOfRange):
		code = soap.ErrorArgumentOutOfRange
	case errors.Is(err, mainvolume.ErrUnknownProperty):
		code = ErrorUnknownProperty
	case errors.Is(err, mainvolume.ErrReadOnlyProperty):
		code = ErrorReadOnlyProperty
	case errors.Is(err, mainvolume.ErrRateLimited):
		code = ErrorRateLimited
	}

	return &soap.UPnPError{Code: code, Description: err.Error()}
}

func formatUint(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}

// parseBoolean accepts the UPnP boolean spellings.
func parseBoolean(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "true", "yes":
		return true, nil
	case "0", "false", "no":
		return false, nil
	}
	return false, &soap.UPnPError{
		Code:        soap.ErrorArgumentValueInvalid,
		Description: fmt.Sprintf("invalid boolean %q", s),
	}
}
