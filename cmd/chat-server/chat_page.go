package main

import (
    "net/http"
)

// serveChatPage send a minimal page that connects to "/chat". Lines
// requesting a file are answered by acknowledging its chunks, and the
// assembled file is offered as a link.
func serveChatPage(w http.ResponseWriter) {
    w.Header().Set("Content-Type", "text/html")
    w.WriteHeader(http.StatusOK)
    w.Write([]byte(chat_page))
}

const chat_page = `<html>
    <head>
        <title> File chat </title>
        <meta charset="utf-8" name="viewport" />

        <style>
            body {
                padding-left: 10%;
                padding-right: 10%;
                font-size: large;
            }
            div {
                display: flex;
                flex-direction: row;
                align-items: baseline;
                margin-bottom: 0.25em;
            }
            label {
                font-size: large;
            }
            input.text {
                margin-left: 1em;
                height: 2em;
                font-size: large;
            }
            input.button {
                height: 2em;
                font-size: large;
            }
            input.textbox {
                width: 90%;
                margin-right: 0.25em;
                margin-top: 0.25em;
                height: 2em;
                font-size: large;
            }
            div.textbox {
                display: block;
                width: 95%;
                height: 75%;
                margin-top: 0.25em;
                overflow-y: scroll;
                border: solid;
                padding: 1em;
            }
        </style>

        <script>
            let ws = null;
            let username = '';
            // The file being downloaded, if any.
            let download = null;

            let crcTable = (function() {
                let table = new Uint32Array(256);
                for (let i = 0; i < 256; i++) {
                    let c = i;
                    for (let k = 0; k < 8; k++) {
                        c = (c & 1) ? (0xEDB88320 ^ (c >>> 1)) : (c >>> 1);
                    }
                    table[i] = c >>> 0;
                }
                return table;
            })();

            let crc32 = function(data) {
                let crc = 0xFFFFFFFF;
                for (let i = 0; i < data.length; i++) {
                    crc = crcTable[(crc ^ data[i]) & 0xFF] ^ (crc >>> 8);
                }
                return (crc ^ 0xFFFFFFFF) >>> 0;
            }

            let encodeFrame = function(seq, payload) {
                let frame = new Uint8Array(8 + payload.length);
                let view = new DataView(frame.buffer);
                view.setUint32(0, seq, false);
                frame.set(payload, 4);
                view.setUint32(4 + payload.length, crc32(payload), false);
                return frame;
            }

            let ackFrame = function(seq) {
                return encodeFrame(seq, new TextEncoder().encode('ACK'));
            }

            let nakFrame = function(seq) {
                return encodeFrame(seq, new TextEncoder().encode('NAK'));
            }

            let appendMsg = function(msg) {
                let chat = document.getElementById('chat');
                let p = document.createElement('p');
                p.textContent = msg;
                chat.appendChild(p);
                chat.scrollTo(0, chat.scrollHeight);
            }

            let appendLink = function(name, chunks) {
                let chat = document.getElementById('chat');
                let p = document.createElement('p');
                let a = document.createElement('a');
                a.href = URL.createObjectURL(new Blob(chunks));
                a.download = name;
                a.textContent = 'Downloaded ' + name;
                p.appendChild(a);
                chat.appendChild(p);
                chat.scrollTo(0, chat.scrollHeight);
            }

            // isDownload check if a line sent by the user requests a file.
            let isDownload = function(msg) {
                if (msg == '!filelist' || msg == '$exit') {
                    return false;
                } else if (msg[0] == '@' && msg.indexOf(' ') != -1) {
                    return false;
                }
                return msg.indexOf(' ') != -1;
            }

            // recvFrame acknowledge a single chunk of the current download.
            let recvFrame = function(data) {
                if (download == null) {
                    return;
                }

                let frame = new Uint8Array(data);
                let ok = frame.length >= 8;
                let seq = 0;
                let payload = null;
                if (ok) {
                    let view = new DataView(data);
                    seq = view.getUint32(0, false);
                    payload = frame.slice(4, frame.length - 4);
                    ok = crc32(payload) == view.getUint32(frame.length - 4, false);
                }

                if (!ok || seq > download.expected) {
                    ws.send(nakFrame(download.expected));
                    return;
                } else if (seq < download.expected) {
                    ws.send(ackFrame(seq));
                    return;
                }

                if (payload.length == 0) {
                    appendLink(download.name, download.chunks);
                    download = null;
                    return;
                }

                download.chunks.push(payload);
                download.expected++;
                ws.send(ackFrame(seq));
            }

            let wsRecv = function(e) {
                if (typeof e.data !== 'string') {
                    recvFrame(e.data);
                    return;
                }

                if (download != null) {
                    let name = download.name;
                    if (e.data == "Error: File '" + name + "' not found." ||
                            e.data == "Error: transfer of '" + name + "' aborted.") {
                        download = null;
                    }
                }
                appendMsg(e.data);
            }

            let wsClose = function(e) {
                appendMsg('Connection to the server was closed!');
                ws = null;
                download = null;
            }

            let connect = function() {
                let ufield = document.getElementById('username');

                username = ufield.value;
                if (username == '') {
                    return;
                }

                if (ws != null) {
                    ws.close()
                    ws = null;
                }

                ws = new WebSocket('ws://' + window.location.host + '/chat')
                ws.binaryType = 'arraybuffer';
                ws.addEventListener('open', function(e) { ws.send(username); })
                ws.addEventListener('message', wsRecv)
                ws.addEventListener('close', wsClose)
            }

            let send = function() {
                let mfield = document.getElementById('message');

                let msg = mfield.value;
                if (msg == '' || ws == null) {
                    return;
                }

                let requested = isDownload(msg);
                if (requested) {
                    if (download != null) {
                        appendMsg('Wait for ' + download.name + ' to finish downloading.');
                        return;
                    }
                    download = {
                        name: msg.substring(0, msg.indexOf(' ')),
                        expected: 0,
                        chunks: [],
                    };
                }

                ws.send(msg);
                if (msg[0] != '!' && msg[0] != '$' && !requested) {
                    appendMsg(username + ': ' + msg);
                }

                mfield.value = '';
            }

            let on_boot = function (e) {
                let mfield = document.getElementById('message');
                mfield.addEventListener('keyup', function (e) {
                    if (e.key == 'Enter') {
                        send();
                    }
                });
            }
            document.addEventListener('DOMContentLoaded', on_boot);
        </script>
    </head>

    <body>
        <div>
            <label for='username'> Username: </label>
            <input class='text' type='text' id='username' name='username'>
        </div>
        <div>
            <input class='button' onclick="connect();" type="button" value="Connect">
        </div>

        <div class='textbox' id='chat'> </div>

        <div>
            <input class='textbox' type='text' id='message' name='message'>
            <input class='button' onclick="send();" type="button" value="Send">
        </div>
    </body>
</html>`
