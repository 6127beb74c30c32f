// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

package modem

// GPRSConnect brings up the packet-data bearer for apn (with optional
// user/pwd), running the full SAPBR/PDP-context/CSTT/CIICR sequence. Any
// step's failure aborts and returns false; the caller should invoke
// GPRSDisconnect to leave the modem in a known state before retrying.
func (s *Session) GPRSConnect(apn, user, pwd string) (bool, error) {
	if err := s.Engine.Command(60000, "+CIPSHUT"); err != nil {
		return false, err
	}
	steps := []struct {
		timeoutMs int64
		fragments []interface{}
	}{
		{3000, []interface{}{"+SAPBR=3,1,\"Contype\",\"GPRS\""}},
		{3000, []interface{}{"+SAPBR=3,1,\"APN\",\"", apn, "\""}},
		{3000, []interface{}{"+SAPBR=3,1,\"USER\",\"", user, "\""}},
		{3000, []interface{}{"+SAPBR=3,1,\"PWD\",\"", pwd, "\""}},
		{3000, []interface{}{"+CGDCONT=1,\"IP\",\"", apn, "\""}},
		{60000, []interface{}{"+CGACT=1,1"}},
		{85000, []interface{}{"+SAPBR=1,1"}},
		{30000, []interface{}{"+SAPBR=2,1"}},
		{60000, []interface{}{"+CGATT=1"}},
		{3000, []interface{}{"+CIPMUX=1"}},
		{3000, []interface{}{"+CIPQSEND=1"}},
		{3000, []interface{}{"+CIPRXGET=1"}},
		{3000, []interface{}{"+CSTT=\"", apn, "\",\"", user, "\",\"", pwd, "\""}},
		{60000, []interface{}{"+CIICR"}},
		{10000, []interface{}{"+CIFSR;E0"}},
		{3000, []interface{}{"+CDNSCFG=\"8.8.8.8\",\"8.8.4.4\""}},
	}
	for _, step := range steps {
		if err := s.Engine.Command(step.timeoutMs, step.fragments...); err != nil {
			return false, err
		}
	}
	return true, nil
}

// GPRSDisconnect tears down the packet-data bearer. It is idempotent: two
// consecutive calls with no bearer up both report success, since +CIPSHUT
// and +CGATT=0 are no-ops in that state.
func (s *Session) GPRSDisconnect() error {
	if err := s.Engine.Command(60000, "+CIPSHUT"); err != nil {
		return err
	}
	return s.Engine.Command(60000, "+CGATT=0")
}
