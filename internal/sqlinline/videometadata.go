package sqlinline

const QInsertVideoMetadata = `--sql 2d6b9f4e-0c3a-4d7b-9e1f-3a5c7e9b1d28
insert into videometadata (chat_id, user_id, prompt, video_path)
values ($1::uuid, $2, $3, $4);
`
