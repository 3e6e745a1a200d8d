package bounce

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

const dsnReport = `From: Mail Delivery System <MAILER-DAEMON@mx.example.edu>
To: admissions@example.edu
Subject: Undelivered Mail Returned to Sender
Date: Wed, 01 May 2024 10:00:00 +0000
Message-ID: <bounce-1@mx.example.edu>
MIME-Version: 1.0
Content-Type: multipart/report; report-type=delivery-status; boundary="BOUNDARY"

--BOUNDARY
Content-Type: text/plain; charset=us-ascii

This is the mail system. Your message could not be delivered.

--BOUNDARY
Content-Type: message/delivery-status

Reporting-MTA: dns; mx.example.edu
Arrival-Date: Wed, 01 May 2024 09:59:58 +0000

Final-Recipient: rfc822; gone@example.edu
Original-Recipient: rfc822;gone@example.edu
Action: failed
Status: 5.1.1
Diagnostic-Code: smtp; 550 5.1.1 user unknown

Final-Recipient: rfc822; slow@example.edu
Action: delayed
Status: 4.4.1

Final-Recipient: rfc822; <Full@Example.edu>
Action: Failed
Status: 5.2.2

--BOUNDARY
Content-Type: message/rfc822

From: admissions@example.edu
To: gone@example.edu
Subject: Graduate programme

Hello
--BOUNDARY--
`

func TestParseBounce_DeliveryStatus(t *testing.T) {
	got, err := ParseBounce(crlf(dsnReport))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "gone@example.edu", got[0].Address)
	assert.Equal(t, "5.1.1 550 5.1.1 user unknown", got[0].Reason)
	assert.Equal(t, "bounce-1@mx.example.edu", got[0].MessageID)
	assert.True(t, got[0].DetectedAt.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))

	assert.Equal(t, "Full@Example.edu", got[1].Address)
	assert.Equal(t, "5.2.2", got[1].Reason)
}

const eximBounce = `From: Mail Delivery System <Mailer-Daemon@relay.example.org>
To: admissions@example.edu
Subject: Mail delivery failed: returning message to sender
X-Failed-Recipients: a@example.org, b@example.org
Content-Type: text/plain

This message was created automatically by mail delivery software.
`

func TestParseBounce_XFailedRecipients(t *testing.T) {
	got, err := ParseBounce(crlf(eximBounce))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a@example.org", got[0].Address)
	assert.Equal(t, "b@example.org", got[1].Address)
	assert.Equal(t, "delivery failed", got[0].Reason)
	assert.False(t, got[0].DetectedAt.IsZero(), "missing Date falls back to now")
}

func TestParseBounce_OrdinaryMessage(t *testing.T) {
	raw := crlf(`From: li@example.edu
To: admissions@example.edu
Subject: Re: Graduate programme
Content-Type: text/plain

Thanks, I am interested.
`)
	got, err := ParseBounce(raw)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseBounce_DuplicateRecipients(t *testing.T) {
	raw := crlf(`From: MAILER-DAEMON@mx.example.edu
Subject: failure notice
Content-Type: multipart/report; report-type=delivery-status; boundary="B"

--B
Content-Type: message/delivery-status

Reporting-MTA: dns; mx.example.edu

Final-Recipient: rfc822; x@example.edu
Action: failed

Final-Recipient: rfc822; X@example.edu
Action: failed
--B--
`)
	got, err := ParseBounce(raw)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "x@example.edu", got[0].Address)
}

func TestLooksLikeBounce(t *testing.T) {
	tests := []struct {
		env  Envelope
		want bool
	}{
		{Envelope{From: "MAILER-DAEMON@mx.example.edu", Subject: "anything"}, true},
		{Envelope{From: "postmaster@example.org"}, true},
		{Envelope{From: "noreply@gmail.com", Subject: "Delivery Status Notification (Failure)"}, true},
		{Envelope{From: "system@qq.com", Subject: "退信通知"}, true},
		{Envelope{From: "li@example.edu", Subject: "Re: Graduate programme"}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, looksLikeBounce(tt.env), "%+v", tt.env)
	}
}
