package sshsubsystem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xssh "golang.org/x/crypto/ssh"
)

const (
	testUser = "testUser"
	testPass = "testPassword"
)

func TestSubsystemRoundTrip(t *testing.T) {
	config, err := PasswordConfig(testUser, testPass)
	require.NoError(t, err)

	ln, err := NewListener("localhost:0", config)
	require.NoError(t, err)
	defer ln.Close()

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		conn, err := ln.Accept()
		require.NoError(t, err)
		defer conn.Close()
		buf := make([]byte, 5)
		_, _ = conn.Read(buf)
		_, _ = conn.Write([]byte(">" + string(buf) + "<"))
	}()

	clientConfig := &xssh.ClientConfig{
		User:            testUser,
		Auth:            []xssh.AuthMethod{xssh.Password(testPass)},
		HostKeyCallback: xssh.InsecureIgnoreHostKey(),
	}
	clientConn, err := xssh.Dial("tcp", ln.Addr().String(), clientConfig)
	require.NoError(t, err)
	defer clientConn.Close()

	session, err := clientConn.NewSession()
	require.NoError(t, err)
	defer session.Close()

	stdin, err := session.StdinPipe()
	require.NoError(t, err)
	stdout, err := session.StdoutPipe()
	require.NoError(t, err)

	require.NoError(t, session.RequestSubsystem("netconf"))

	_, err = stdin.Write([]byte("hello"))
	require.NoError(t, err)

	buf := make([]byte, 7)
	_, err = stdout.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, ">hello<", string(buf))

	<-serverDone
}

func TestPasswordConfigRejectsBadCredentials(t *testing.T) {
	config, err := PasswordConfig(testUser, testPass)
	require.NoError(t, err)

	ln, err := NewListener("localhost:0", config)
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		_, _ = ln.Accept()
	}()

	clientConfig := &xssh.ClientConfig{
		User:            testUser,
		Auth:            []xssh.AuthMethod{xssh.Password("wrong")},
		HostKeyCallback: xssh.InsecureIgnoreHostKey(),
	}
	_, err = xssh.Dial("tcp", ln.Addr().String(), clientConfig)
	assert.Error(t, err)
}
